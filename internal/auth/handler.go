package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/shared"
	"stroke_rehab_backend/internal/user"
)

// Neutral acknowledgements for the request endpoints. The wording never
// changes with account existence.
const (
	msgVerificationRequested = "If an account with that email exists, a verification email has been sent."
	msgResetRequested        = "If an account with that email exists, a password reset email has been sent."
)

// Handler handles authentication HTTP requests.
type Handler struct {
	userService user.Service
	workflow    WorkflowService
	verifier    GoogleVerifier
	logger      *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(userService user.Service, workflow WorkflowService, verifier GoogleVerifier, logger *zap.Logger) *Handler {
	return &Handler{
		userService: userService,
		workflow:    workflow,
		verifier:    verifier,
		logger:      logger,
	}
}

// RegisterRoutes mounts the authentication endpoints.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/login/google", h.GoogleLogin)
		authGroup.POST("/verify-email", h.VerifyEmail)
		authGroup.POST("/resend-verification", h.ResendVerification)
		authGroup.POST("/request-password-reset", h.RequestPasswordReset)
		authGroup.POST("/reset-password", h.ResetPassword)
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

// Register creates a local account and starts email verification.
func (h *Handler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	newUser, _, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user.ToUserResponse(newUser))
}

// Login verifies local credentials and returns an access token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	_, accessToken, err := h.userService.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, shared.TokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}

// GoogleLogin verifies a Google ID token, reconciles it against the local
// account store and returns an access token.
func (h *Handler) GoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.verifier.Verify(c.Request.Context(), req.Token)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	_, accessToken, err := h.userService.ReconcileFederated(c.Request.Context(), *profile)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, shared.TokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}

// VerifyEmail redeems an email-verification token.
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.workflow.ConfirmEmailVerification(c.Request.Context(), req.Token); err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondOK(c, "Email verified successfully.", nil)
}

// ResendVerification issues a fresh verification email.
func (h *Handler) ResendVerification(c *gin.Context) {
	var req ResendVerificationRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.workflow.RequestEmailVerification(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("Resend verification failed", zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}

	common.RespondOK(c, msgVerificationRequested, nil)
}

// RequestPasswordReset starts the password-reset workflow.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req RequestPasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.workflow.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("Password reset request failed", zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}

	common.RespondOK(c, msgResetRequested, nil)
}

// ResetPassword redeems a reset token for a new password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.workflow.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondOK(c, "Password has been reset successfully.", nil)
}
