//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/app"
	"stroke_rehab_backend/internal/assessment"
	"stroke_rehab_backend/internal/auth"
	"stroke_rehab_backend/internal/config"
	"stroke_rehab_backend/internal/email"
	"stroke_rehab_backend/internal/jobs"
	"stroke_rehab_backend/internal/media"
	"stroke_rehab_backend/internal/platform/database"
	"stroke_rehab_backend/internal/shared"
	"stroke_rehab_backend/internal/user"
)

func initializeServer(cfg *config.Config, logger *zap.Logger) (*app.Server, error) {
	wire.Build(
		database.NewGORM,
		auth.NewJWTService,
		wire.Bind(new(shared.TokenService), new(*auth.JWTService)),
		email.NewSender,
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		user.NewSharedService,
		user.NewHandler,
		auth.NewWorkflowService,
		auth.NewGoogleVerifier,
		auth.NewHandler,
		assessment.NewGORMRepository,
		assessment.NewService,
		assessment.NewHandler,
		media.NewService,
		media.NewHandler,
		jobs.NewTokenCleanupJob,
		app.NewServer,
	)
	return nil, nil
}
