package user

import (
	"context"

	"stroke_rehab_backend/internal/shared"
)

// DBToShared converts the persistence model into the transport user handed
// to middleware and other packages.
func DBToShared(u *User) *shared.User {
	if u == nil {
		return nil
	}
	return &shared.User{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type sharedServiceAdapter struct {
	repo Repository
}

// NewSharedService exposes user lookups behind the narrow shared.Service
// interface consumed by the session authenticator.
func NewSharedService(repo Repository) shared.Service {
	return &sharedServiceAdapter{repo: repo}
}

func (a *sharedServiceAdapter) GetUserByID(ctx context.Context, id uint) (*shared.User, error) {
	dbUser, err := a.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return DBToShared(dbUser), nil
}
