package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/middleware"
)

// Handler handles user account and profile HTTP requests.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the account endpoints. authMW must populate the
// current user.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	meGroup := router.Group("/auth/me")
	meGroup.Use(authMW)
	{
		meGroup.GET("", h.GetMe)
		meGroup.PUT("", h.UpdateMe)
		meGroup.GET("/profile", h.GetMyProfile)
		meGroup.PUT("/profile", h.UpdateMyProfile)
	}
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
		} else {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		}
		return false
	}
	return true
}

// GetMe returns the authenticated user's account.
func (h *Handler) GetMe(c *gin.Context) {
	currentUser, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	dbUser, err := h.service.GetUserByID(c.Request.Context(), currentUser.ID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToUserResponse(dbUser))
}

// UpdateMe updates the authenticated user's account fields.
func (h *Handler) UpdateMe(c *gin.Context) {
	currentUser, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	var req UpdateMeRequest
	if !bindJSON(c, &req) {
		return
	}

	dbUser, err := h.service.UpdateMe(c.Request.Context(), currentUser.ID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToUserResponse(dbUser))
}

// GetMyProfile returns the authenticated user's clinical profile.
func (h *Handler) GetMyProfile(c *gin.Context) {
	currentUser, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), currentUser.ID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToProfileResponse(profile))
}

// UpdateMyProfile updates the authenticated user's clinical profile.
func (h *Handler) UpdateMyProfile(c *gin.Context) {
	currentUser, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), currentUser.ID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToProfileResponse(profile))
}
