package handler

import (
	"bytes"
	"context"
	"encoding/json"
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

type checkInServiceMock struct {
	resp      *models.CheckInResult
	err       error
	lastReq   service.CheckInRequest
	lastActor string
}

func (m *checkInServiceMock) CheckIn(ctx context.Context, req service.CheckInRequest, actorID string) (*models.CheckInResult, error) {
	m.lastReq = req
	m.lastActor = actorID
	return m.resp, m.err
}

func staffClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}
}

func TestCheckInHandlerFirstScan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &checkInServiceMock{
		resp: &models.CheckInResult{
			Registration: models.RegistrationDetail{Registration: models.Registration{ID: "r1", EventID: "e1"}},
			FirstCheckIn: true,
		},
	}
	handler := NewCheckInHandler(mockSvc)

	payload, _ := json.Marshal(service.CheckInRequest{EventID: "e1", Token: "abc.def"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/check-in", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, staffClaims())

	handler.CheckIn(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "e1", mockSvc.lastReq.EventID)
	assert.Equal(t, "staff-1", mockSvc.lastActor)
	assert.Contains(t, w.Body.String(), `"first_check_in":true`)
}

func TestCheckInHandlerInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCheckInHandler(&checkInServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/check-in", bytes.NewBufferString(`{"event_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, staffClaims())

	handler.CheckIn(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckInHandlerTokenMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCheckInHandler(&checkInServiceMock{err: appErrors.ErrTokenEventMismatch})

	payload, _ := json.Marshal(service.CheckInRequest{EventID: "e2", Token: "abc.def"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/check-in", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, staffClaims())

	handler.CheckIn(c)
	require.Equal(t, http.StatusConflict, w.Code)
}
