package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-events-api/internal/middleware"
	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/response"
)

type credentialService interface {
	Issue(ctx context.Context, registrationID, actorID string, actorRole models.UserRole) (*service.Credential, error)
	RenderDocument(ctx context.Context, registrationID, actorID string, actorRole models.UserRole) ([]byte, error)
}

// CredentialHandler exposes attendance credential endpoints.
type CredentialHandler struct {
	service credentialService
}

// NewCredentialHandler constructs a credential handler.
func NewCredentialHandler(svc credentialService) *CredentialHandler {
	return &CredentialHandler{service: svc}
}

// Issue godoc
// @Summary Get attendance credential
// @Description Returns the scannable credential token for a confirmed registration
// @Tags Credentials
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/credential [get]
func (h *CredentialHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	credential, err := h.service.Issue(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, credential, nil)
}

// Document godoc
// @Summary Download credential document
// @Description Returns the printable PDF badge with the embedded QR code
// @Tags Credentials
// @Produce application/pdf
// @Param id path string true "Registration ID"
// @Success 200 {file} file
// @Router /registrations/{id}/credential/document [get]
func (h *CredentialHandler) Document(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	document, err := h.service.RenderDocument(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "credential-" + c.Param("id") + ".pdf"
	middleware.SetDownloadFilename(c, filename)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", document)
}
