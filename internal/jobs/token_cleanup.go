package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/config"
	"stroke_rehab_backend/internal/user"
)

// TokenCleanupJob periodically nulls out stored verification and reset
// token pairs whose expiry has passed. Expiry is already enforced at
// redemption time; this is storage hygiene, not a security boundary.
type TokenCleanupJob struct {
	repo     user.Repository
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewTokenCleanupJob creates the cleanup job from configuration.
func NewTokenCleanupJob(repo user.Repository, cfg *config.Config, logger *zap.Logger) *TokenCleanupJob {
	return &TokenCleanupJob{
		repo:     repo,
		schedule: cfg.TokenCleanupJobSchedule,
		logger:   logger,
	}
}

// Start registers the schedule and begins running the job.
func (j *TokenCleanupJob) Start() error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, j.run); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("Token cleanup job scheduled", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running invocation to finish.
func (j *TokenCleanupJob) Stop() {
	if j.cron == nil {
		return
	}
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *TokenCleanupJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cleared, err := j.repo.ClearExpiredTokens(ctx, time.Now())
	if err != nil {
		j.logger.Error("Token cleanup run failed", zap.Error(err))
		return
	}
	j.logger.Info("Token cleanup run completed", zap.Int64("cleared", cleared))
}
