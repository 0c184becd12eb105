package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-events-api/internal/middleware"
	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type credentialServiceMock struct {
	issueResp    *service.Credential
	issueErr     error
	documentResp []byte
	documentErr  error
}

func (m *credentialServiceMock) Issue(ctx context.Context, registrationID, actorID string, actorRole models.UserRole) (*service.Credential, error) {
	return m.issueResp, m.issueErr
}

func (m *credentialServiceMock) RenderDocument(ctx context.Context, registrationID, actorID string, actorRole models.UserRole) ([]byte, error) {
	return m.documentResp, m.documentErr
}

func TestCredentialHandlerIssue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &credentialServiceMock{
		issueResp: &service.Credential{RegistrationID: "r1", EventID: "e1", Token: "abc.def"},
	}
	handler := NewCredentialHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/registrations/r1/credential", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Issue(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "abc.def")
}

func TestCredentialHandlerIssueNotConfirmed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCredentialHandler(&credentialServiceMock{issueErr: appErrors.ErrNotConfirmed})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/registrations/r1/credential", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Issue(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestCredentialHandlerIssueUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCredentialHandler(&credentialServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/registrations/r1/credential", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.Issue(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCredentialHandlerDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &credentialServiceMock{documentResp: []byte("%PDF-1.3 fake")}
	handler := NewCredentialHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/registrations/r1/credential/document", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Document(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "credential-r1.pdf")
}
