package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/response"
)

type checkInService interface {
	CheckIn(ctx context.Context, req service.CheckInRequest, actorID string) (*models.CheckInResult, error)
}

// CheckInHandler exposes the entrance scan endpoint.
type CheckInHandler struct {
	service checkInService
}

// NewCheckInHandler constructs a check-in handler.
func NewCheckInHandler(svc checkInService) *CheckInHandler {
	return &CheckInHandler{service: svc}
}

// CheckIn godoc
// @Summary Check in a credential
// @Description Validates a scanned credential token against the staffed event and records attendance
// @Tags CheckIn
// @Accept json
// @Produce json
// @Param payload body service.CheckInRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Router /check-in [post]
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.CheckIn(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
