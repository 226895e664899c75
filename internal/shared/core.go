package shared

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stroke_rehab_backend/internal/common"
)

// Token type discriminators. Access tokens carry no type claim; its absence
// is what marks a token as an access token.
const (
	TokenTypeEmailVerification = "email_verification"
	TokenTypePasswordReset     = "password_reset"
)

// Claims is the JWT payload shared by all token kinds. Subject is the
// stringified user id.
type Claims struct {
	TokenType string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a user id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// TokenService signs and verifies the compact, expiring, typed tokens used
// across the identity core.
type TokenService interface {
	GenerateAccessToken(userID uint) (string, time.Time, error)
	GenerateEmailVerificationToken(userID uint) (string, time.Time, error)
	GeneratePasswordResetToken(userID uint) (string, time.Time, error)
	// DecodeToken fails with common.ErrTokenExpired once the signed expiry
	// has passed and common.ErrTokenInvalid on any other defect.
	DecodeToken(tokenString string) (*Claims, error)
}

// User is the transport representation of an authenticated user, detached
// from the persistence model so that middleware does not depend on GORM.
type User struct {
	ID         uint
	Email      *string
	Username   string
	FirstName  *string
	LastName   *string
	Role       common.Role
	IsActive   bool
	IsVerified bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Service is the slice of the user service the session authenticator needs.
type Service interface {
	GetUserByID(ctx context.Context, id uint) (*User, error)
}

// FederatedProfile holds the identity asserted by an external provider
// after its token has been verified.
type FederatedProfile struct {
	ProviderID    string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	Picture       string
}

// TokenResponse is the body returned by the login endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
