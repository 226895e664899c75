package assessment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/shared"
)

// Service defines assessment operations with ownership enforcement. The
// caller is the authenticated user; access to another user's records is
// limited to doctors and admins.
type Service interface {
	Record(ctx context.Context, caller *shared.User, req CreateRequest) (*Assessment, error)
	Get(ctx context.Context, caller *shared.User, id uint) (*Assessment, error)
	ListOwn(ctx context.Context, caller *shared.User, query ListQuery) ([]Assessment, int64, error)
	ListForPatient(ctx context.Context, caller *shared.User, patientID uint, query ListQuery) ([]Assessment, int64, error)
	Delete(ctx context.Context, caller *shared.User, id uint) error
}

type serviceImpl struct {
	repo   Repository
	logger *zap.Logger
}

var _ Service = (*serviceImpl)(nil)

// NewService creates a new assessment service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &serviceImpl{repo: repo, logger: logger}
}

func canReadOthers(caller *shared.User) bool {
	return caller.Role == common.RoleDoctor || caller.Role == common.RoleAdmin
}

func (s *serviceImpl) Record(ctx context.Context, caller *shared.User, req CreateRequest) (*Assessment, error) {
	recordedAt := time.Now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	a := &Assessment{
		UserID:     caller.ID,
		Kind:       req.Kind,
		Score:      req.Score,
		Answers:    req.Answers,
		Notes:      req.Notes,
		RecordedAt: recordedAt,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Error("Failed to record assessment", zap.Error(err), zap.Uint("userID", caller.ID))
		return nil, err
	}
	s.logger.Info("Assessment recorded", zap.Uint("userID", caller.ID), zap.String("kind", a.Kind))
	return a, nil
}

func (s *serviceImpl) Get(ctx context.Context, caller *shared.User, id uint) (*Assessment, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != caller.ID && !canReadOthers(caller) {
		return nil, common.ErrForbidden
	}
	return a, nil
}

func (s *serviceImpl) ListOwn(ctx context.Context, caller *shared.User, query ListQuery) ([]Assessment, int64, error) {
	return s.repo.ListByUser(ctx, caller.ID, query)
}

func (s *serviceImpl) ListForPatient(ctx context.Context, caller *shared.User, patientID uint, query ListQuery) ([]Assessment, int64, error) {
	if patientID != caller.ID && !canReadOthers(caller) {
		return nil, 0, common.ErrForbidden
	}
	return s.repo.ListByUser(ctx, patientID, query)
}

func (s *serviceImpl) Delete(ctx context.Context, caller *shared.User, id uint) error {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if a.UserID != caller.ID && caller.Role != common.RoleAdmin {
		return common.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}
