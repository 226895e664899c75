package assessment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/middleware"
)

// Handler handles assessment HTTP requests.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new assessment handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the assessment endpoints behind authentication.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	assessments := router.Group("/assessments")
	assessments.Use(authMW)
	{
		assessments.POST("", h.Record)
		assessments.GET("", h.ListOwn)
		assessments.GET("/:id", h.Get)
		assessments.DELETE("/:id", h.Delete)
	}

	patients := router.Group("/patients")
	patients.Use(authMW)
	{
		patients.GET("/:id/assessments", h.ListForPatient)
	}
}

func respondBindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
		return
	}
	common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
}

// Record stores a new assessment for the authenticated user.
func (h *Handler) Record(c *gin.Context) {
	caller, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	a, err := h.service.Record(c.Request.Context(), caller, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ToResponse(a))
}

// Get returns a single assessment.
func (h *Handler) Get(c *gin.Context) {
	caller, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid assessment id."))
		return
	}

	a, err := h.service.Get(c.Request.Context(), caller, uint(id))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToResponse(a))
}

// ListOwn returns a page of the authenticated user's assessments.
func (h *Handler) ListOwn(c *gin.Context) {
	caller, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	list, total, err := h.service.ListOwn(c.Request.Context(), caller, query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Assessments retrieved successfully.", ToResponses(list), common.NewPagination(total, query.Page, query.PageSize))
}

// ListForPatient returns a page of a patient's assessments for clinical
// staff, or for the patient themselves.
func (h *Handler) ListForPatient(c *gin.Context) {
	caller, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	patientID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid patient id."))
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	list, total, err := h.service.ListForPatient(c.Request.Context(), caller, uint(patientID), query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Assessments retrieved successfully.", ToResponses(list), common.NewPagination(total, query.Page, query.PageSize))
}

// Delete removes an assessment owned by the caller.
func (h *Handler) Delete(c *gin.Context) {
	caller, ok := middleware.GetCurrentUser(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid assessment id."))
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, uint(id)); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
