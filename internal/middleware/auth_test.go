package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/shared"
)

type stubTokens struct {
	claims map[string]*shared.Claims
}

func (s *stubTokens) GenerateAccessToken(userID uint) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (s *stubTokens) GenerateEmailVerificationToken(userID uint) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (s *stubTokens) GeneratePasswordResetToken(userID uint) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (s *stubTokens) DecodeToken(tokenString string) (*shared.Claims, error) {
	claims, ok := s.claims[tokenString]
	if !ok {
		return nil, common.ErrTokenInvalid
	}
	return claims, nil
}

type stubUsers struct {
	users map[uint]*shared.User
}

func (s *stubUsers) GetUserByID(ctx context.Context, id uint) (*shared.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return u, nil
}

func claimsFor(userID string, tokenType string) *shared.Claims {
	return &shared.Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newProtectedEngine(tokens *stubTokens, users *stubUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", AuthMiddleware(tokens, users, zap.NewNop()), func(c *gin.Context) {
		currentUser, ok := GetCurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": currentUser.ID})
	})
	return engine
}

func get(t *testing.T, engine *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func TestAuthMiddleware(t *testing.T) {
	tokens := &stubTokens{claims: map[string]*shared.Claims{
		"good":     claimsFor("1", ""),
		"typed":    claimsFor("1", shared.TokenTypePasswordReset),
		"inactive": claimsFor("2", ""),
		"ghost":    claimsFor("99", ""),
		"badsub":   claimsFor("not-a-number", ""),
	}}
	users := &stubUsers{users: map[uint]*shared.User{
		1: {ID: 1, Username: "active", Role: common.RolePatient, IsActive: true},
		2: {ID: 2, Username: "disabled", Role: common.RolePatient, IsActive: false},
	}}
	engine := newProtectedEngine(tokens, users)

	t.Run("valid token passes", func(t *testing.T) {
		resp := get(t, engine, "Bearer good")
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, engine, "").Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, engine, "Token good").Code)
		assert.Equal(t, http.StatusUnauthorized, get(t, engine, "Bearer").Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, engine, "Bearer junk").Code)
	})

	t.Run("workflow token is not a session", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, engine, "Bearer typed").Code)
	})

	t.Run("inactive user rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, engine, "Bearer inactive").Code)
	})

	t.Run("deleted user rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, engine, "Bearer ghost").Code)
	})

	t.Run("non-numeric subject rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, engine, "Bearer badsub").Code)
	})
}

func TestRoleAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/admin",
		func(c *gin.Context) {
			c.Set(ContextUserKey, &shared.User{ID: 1, Role: common.RolePatient, IsActive: true})
		},
		RoleAuthMiddleware(common.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}
