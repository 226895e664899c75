package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/config"
	"stroke_rehab_backend/internal/shared"
)

// JWTService implements shared.TokenService with HS256-signed JWTs. The
// token kind is carried in a "type" claim; access tokens omit it entirely,
// so an access token can never be replayed against a workflow endpoint.
type JWTService struct {
	secretKey          []byte
	accessTokenExpiry  time.Duration
	verificationExpiry time.Duration
	resetExpiry        time.Duration
}

var _ shared.TokenService = (*JWTService)(nil)

// NewJWTService creates a token service from the loaded configuration.
func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{
		secretKey:          []byte(cfg.JWTSecretKey),
		accessTokenExpiry:  cfg.JWTAccessTokenExpiry,
		verificationExpiry: cfg.VerificationTokenExpiry,
		resetExpiry:        cfg.PasswordResetTokenExpiry,
	}
}

func (s *JWTService) generate(userID uint, tokenType string, expiry time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(expiry)
	claims := shared.Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GenerateAccessToken issues a session token with no type claim.
func (s *JWTService) GenerateAccessToken(userID uint) (string, time.Time, error) {
	return s.generate(userID, "", s.accessTokenExpiry)
}

// GenerateEmailVerificationToken issues a short-lived verification token.
func (s *JWTService) GenerateEmailVerificationToken(userID uint) (string, time.Time, error) {
	return s.generate(userID, shared.TokenTypeEmailVerification, s.verificationExpiry)
}

// GeneratePasswordResetToken issues a short-lived reset token.
func (s *JWTService) GeneratePasswordResetToken(userID uint) (string, time.Time, error) {
	return s.generate(userID, shared.TokenTypePasswordReset, s.resetExpiry)
}

// DecodeToken verifies the signature and expiry and returns the claims.
func (s *JWTService) DecodeToken(tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, common.ErrTokenInvalid
	}
	return claims, nil
}
