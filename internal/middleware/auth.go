package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/shared"
)

// ContextUserKey is the gin context key holding the authenticated user.
const ContextUserKey = "currentUser"

// AuthMiddleware authenticates requests with a bearer access token. Every
// failure mode maps to the same 401 so the response does not reveal whether
// the token, the user or the account state was at fault.
func AuthMiddleware(tokenService shared.TokenService, userService shared.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is missing."))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be Bearer {token}."))
			return
		}

		claims, err := tokenService.DecodeToken(parts[1])
		if err != nil {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}
		// Workflow tokens carry a type claim and are not sessions.
		if claims.TokenType != "" {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}

		currentUser, err := userService.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}
		if !currentUser.IsActive {
			logger.Warn("Inactive user presented a valid token", zap.Uint("userID", currentUser.ID))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}

		c.Set(ContextUserKey, currentUser)
		c.Next()
	}
}

// GetCurrentUser retrieves the authenticated user from the gin context.
func GetCurrentUser(c *gin.Context) (*shared.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	currentUser, ok := value.(*shared.User)
	return currentUser, ok
}

// RoleAuthMiddleware allows only the listed roles past. It must run after
// AuthMiddleware.
func RoleAuthMiddleware(roles ...common.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		currentUser, ok := GetCurrentUser(c)
		if !ok {
			common.RespondWithError(c, common.ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if currentUser.Role == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden)
	}
}
