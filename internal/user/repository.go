package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"stroke_rehab_backend/internal/common"
)

// Repository defines the interface for identity store operations. All
// lookups are unique-or-none; Create and Update translate storage-level
// unique-constraint violations into domain errors, because the constraint
// is the authoritative uniqueness check under concurrent requests.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	Update(ctx context.Context, user *User) error
	CreateProfile(ctx context.Context, userID uint) (*Profile, error)
	FindProfileByUserID(ctx context.Context, userID uint) (*Profile, error)
	UpdateProfile(ctx context.Context, profile *Profile) error
	// Transaction runs fn against a repository bound to a single database
	// transaction; fn returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(Repository) error) error
	// ClearExpiredTokens nulls verification/reset token pairs whose stored
	// expiry has passed. Returns the number of rows touched.
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// translateUniqueViolation maps a storage duplicate-key error onto the
// domain error for the colliding column. Covers the postgres driver
// (constraint name in message, or a pq error code from raw SQL paths) and
// the sqlite driver used in tests ("UNIQUE constraint failed: users.email").
func translateUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	isUnique := errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		isUnique = true
		msg = msg + " " + pqErr.Constraint
	}
	if !isUnique {
		return err
	}
	switch {
	case strings.Contains(msg, "idx_users_email") || strings.Contains(msg, "users.email"):
		return common.ErrDuplicateEmail
	case strings.Contains(msg, "idx_users_username") || strings.Contains(msg, "users.username"):
		return common.ErrDuplicateUsername
	default:
		return common.ErrUniquenessViolation
	}
}

func (r *gormRepository) Create(ctx context.Context, user *User) error {
	if user.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*user.Email))
		user.Email = &normalized
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uint) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &userModel, nil
}

func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var userModel User
	normalized := strings.ToLower(strings.TrimSpace(email))
	err := r.db.WithContext(ctx).Where("email = ?", normalized).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &userModel, nil
}

func (r *gormRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &userModel, nil
}

func (r *gormRepository) FindByGoogleID(ctx context.Context, googleID string) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &userModel, nil
}

func (r *gormRepository) Update(ctx context.Context, user *User) error {
	if user.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*user.Email))
		user.Email = &normalized
	}
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

// CreateProfile creates the 1:1 profile row for a user. Idempotent in
// effect: a second call (or a lost race against one) returns the existing
// profile instead of violating the unique user_id constraint.
func (r *gormRepository) CreateProfile(ctx context.Context, userID uint) (*Profile, error) {
	existing, err := r.FindProfileByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	profile := &Profile{UserID: userID}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		translated := translateUniqueViolation(err)
		if _, isAPIErr := common.IsAPIError(translated); isAPIErr {
			// Lost a creation race; the winner's row satisfies the caller.
			return r.FindProfileByUserID(ctx, userID)
		}
		return nil, err
	}
	return profile, nil
}

func (r *gormRepository) FindProfileByUserID(ctx context.Context, userID uint) (*Profile, error) {
	var profile Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Profile not found for this user.")
		}
		return nil, err
	}
	return &profile, nil
}

func (r *gormRepository) UpdateProfile(ctx context.Context, profile *Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	verification := r.db.WithContext(ctx).Model(&User{}).
		Where("verification_token IS NOT NULL AND verification_token_expires < ?", now).
		Updates(map[string]interface{}{
			"verification_token":         nil,
			"verification_token_expires": nil,
		})
	if verification.Error != nil {
		return 0, verification.Error
	}

	reset := r.db.WithContext(ctx).Model(&User{}).
		Where("password_reset_token IS NOT NULL AND password_reset_expires < ?", now).
		Updates(map[string]interface{}{
			"password_reset_token":   nil,
			"password_reset_expires": nil,
		})
	if reset.Error != nil {
		return verification.RowsAffected, reset.Error
	}

	return verification.RowsAffected + reset.RowsAffected, nil
}
