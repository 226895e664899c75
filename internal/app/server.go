package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stroke_rehab_backend/internal/assessment"
	"stroke_rehab_backend/internal/auth"
	"stroke_rehab_backend/internal/config"
	"stroke_rehab_backend/internal/jobs"
	"stroke_rehab_backend/internal/media"
	"stroke_rehab_backend/internal/middleware"
	"stroke_rehab_backend/internal/platform/database"
	"stroke_rehab_backend/internal/shared"
	"stroke_rehab_backend/internal/user"
)

// Server wires the HTTP surface, background jobs and storage together.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
	engine     *gin.Engine
	httpServer *http.Server
	cleanupJob *jobs.TokenCleanupJob
}

// NewServer assembles the gin engine and routes.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	tokenService shared.TokenService,
	sharedUsers shared.Service,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	assessmentHandler *assessment.Handler,
	mediaHandler *media.Handler,
	cleanupJob *jobs.TokenCleanupJob,
) *Server {
	gin.SetMode(cfg.GinMode)
	engine := gin.New()

	engine.Use(middleware.ZapLogger(logger))
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendBaseURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.ErrorHandler(logger))

	authMW := middleware.AuthMiddleware(tokenService, sharedUsers, logger)

	root := engine.Group("")
	authHandler.RegisterRoutes(root)
	userHandler.RegisterRoutes(root, authMW)
	assessmentHandler.RegisterRoutes(root, authMW)
	mediaHandler.RegisterRoutes(root, authMW)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	return &Server{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		engine:     engine,
		cleanupJob: cleanupJob,
		httpServer: &http.Server{
			Addr:         cfg.ServerHost + ":" + cfg.ServerPort,
			Handler:      engine,
			ReadTimeout:  cfg.ServerTimeout,
			WriteTimeout: cfg.ServerTimeout,
		},
	}
}

// Engine exposes the router, used by tests to drive requests directly.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Migrate brings the schema up to date.
func (s *Server) Migrate() error {
	if err := s.db.AutoMigrate(&user.User{}, &user.Profile{}, &assessment.Assessment{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Start runs migrations, launches background jobs and serves HTTP. It
// blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	if err := s.Migrate(); err != nil {
		return err
	}
	if err := s.cleanupJob.Start(); err != nil {
		return fmt.Errorf("failed to start token cleanup job: %w", err)
	}

	s.logger.Info("HTTP server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops background jobs, drains in-flight requests and closes
// the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cleanupJob.Stop()
	err := s.httpServer.Shutdown(ctx)
	database.CloseGORMDB(s.db)
	return err
}
