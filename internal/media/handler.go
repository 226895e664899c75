package media

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
)

// Handler handles media upload and download HTTP requests.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new media handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the media endpoints behind authentication.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	mediaGroup := router.Group("/media")
	mediaGroup.Use(authMW)
	{
		mediaGroup.POST("/:kind", h.Upload)
		mediaGroup.GET("/:kind/:filename", h.Download)
	}
}

// Upload accepts a multipart recording under the "file" field.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("A multipart \"file\" field is required."))
		return
	}

	stored, err := h.service.Store(c, c.Param("kind"), fileHeader)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// Download streams a stored recording.
func (h *Handler) Download(c *gin.Context) {
	path, err := h.service.Resolve(c.Param("kind"), c.Param("filename"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.File(path)
}
