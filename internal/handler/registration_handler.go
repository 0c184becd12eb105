package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-events-api/internal/middleware"
	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/response"
)

type registrationService interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.RegistrationDetail, error)
	Register(ctx context.Context, req service.RegisterRequest) (*models.RegistrationDetail, error)
	Decide(ctx context.Context, id string, req service.DecideRequest, decidedBy string) (*models.RegistrationDetail, error)
	Cancel(ctx context.Context, id, actorID string, actorRole models.UserRole) (*models.RegistrationDetail, error)
	ExportAttendance(ctx context.Context, eventID, format string) ([]byte, string, error)
}

// RegistrationHandler exposes registration lifecycle endpoints.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs a registration handler.
func NewRegistrationHandler(svc registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

type registerPayload struct {
	UserID string `json:"user_id"`
}

// Register godoc
// @Summary Register for an event
// @Description Students register themselves; staff may register on behalf of a user
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body registerPayload false "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload registerPayload
	_ = c.ShouldBindJSON(&payload)

	userID := claims.UserID
	if payload.UserID != "" && payload.UserID != claims.UserID {
		if claims.Role == models.RoleStudent {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "cannot register another user"))
			return
		}
		userID = payload.UserID
	}

	detail, err := h.service.Register(c.Request.Context(), service.RegisterRequest{
		EventID: c.Param("id"),
		UserID:  userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// List godoc
// @Summary List registrations
// @Description List registrations with filters
// @Tags Registrations
// @Produce json
// @Param eventId query string false "Filter by event"
// @Param userId query string false "Filter by user"
// @Param status query string false "Filter by status"
// @Param checkedIn query bool false "Filter by check-in state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.RegistrationFilter
	filter.EventID = c.Query("eventId")
	filter.UserID = c.Query("userId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.RegistrationStatus(status)
	}
	if checkedIn := c.Query("checkedIn"); checkedIn != "" {
		if val, err := strconv.ParseBool(checkedIn); err == nil {
			filter.CheckedIn = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	// Students only ever see their own registrations.
	if claims.Role == models.RoleStudent {
		filter.UserID = claims.UserID
	}

	registrations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination)
}

// Get godoc
// @Summary Get registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.Role == models.RoleStudent && detail.UserID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Decide godoc
// @Summary Decide a pending registration
// @Description Approve or reject a pending registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body service.DecideRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/decision [post]
func (h *RegistrationHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Cancel godoc
// @Summary Cancel a registration
// @Description Withdraw a pending or confirmed registration before check-in
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ExportAttendance godoc
// @Summary Export attendance sheet
// @Description Download the confirmed registrations of an event as CSV or PDF
// @Tags Registrations
// @Produce text/csv
// @Param id path string true "Event ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} file
// @Router /events/{id}/attendance/export [get]
func (h *RegistrationHandler) ExportAttendance(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", service.ExportFormatCSV))
	data, filename, err := h.service.ExportAttendance(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if strings.HasSuffix(filename, ".pdf") {
		contentType = "application/pdf"
	}
	middleware.SetDownloadFilename(c, filename)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}
