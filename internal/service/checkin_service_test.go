package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/credential"
	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type mockCheckInRepo struct {
	registrations map[string]models.Registration
}

func (m *mockCheckInRepo) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if reg, ok := m.registrations[id]; ok {
		return &reg, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCheckInRepo) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	if reg, ok := m.registrations[id]; ok {
		return &models.RegistrationDetail{Registration: reg, EventTitle: "Orientation", UserName: "Dana Holder"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCheckInRepo) CheckIn(ctx context.Context, id, actorID string, at time.Time) (bool, error) {
	reg, ok := m.registrations[id]
	if !ok || reg.Status != models.RegistrationStatusConfirmed || reg.CheckedInAt != nil {
		return false, nil
	}
	reg.CheckedInAt = &at
	reg.CheckedInBy = &actorID
	m.registrations[id] = reg
	return true, nil
}

func newCheckInService(t *testing.T, repo *mockCheckInRepo) (*CheckInService, *credential.Signer) {
	t.Helper()
	signer, err := credential.NewSigner("test-secret")
	require.NoError(t, err)
	return NewCheckInService(repo, signer, nil, validator.New(), zap.NewNop()), signer
}

func TestCheckInServiceFirstScan(t *testing.T) {
	repo := &mockCheckInRepo{registrations: map[string]models.Registration{
		"r1": {ID: "r1", EventID: "e1", UserID: "u1", Status: models.RegistrationStatusConfirmed},
	}}
	svc, signer := newCheckInService(t, repo)
	token, err := signer.Mint("r1")
	require.NoError(t, err)

	result, err := svc.CheckIn(context.Background(), CheckInRequest{EventID: "e1", Token: token}, "staff-1")
	require.NoError(t, err)
	assert.True(t, result.FirstCheckIn)
	assert.NotNil(t, result.Registration.CheckedInAt)
}

func TestCheckInServiceRepeatScanIsNotAnError(t *testing.T) {
	checkedIn := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	staff := "staff-1"
	repo := &mockCheckInRepo{registrations: map[string]models.Registration{
		"r1": {ID: "r1", EventID: "e1", UserID: "u1", Status: models.RegistrationStatusConfirmed, CheckedInAt: &checkedIn, CheckedInBy: &staff},
	}}
	svc, signer := newCheckInService(t, repo)
	token, err := signer.Mint("r1")
	require.NoError(t, err)

	result, err := svc.CheckIn(context.Background(), CheckInRequest{EventID: "e1", Token: token}, "staff-2")
	require.NoError(t, err)
	assert.False(t, result.FirstCheckIn)
	// The original stamp is preserved.
	require.NotNil(t, result.Registration.CheckedInAt)
	assert.Equal(t, checkedIn, *result.Registration.CheckedInAt)
	assert.Equal(t, "staff-1", *result.Registration.CheckedInBy)
}

func TestCheckInServiceGarbageToken(t *testing.T) {
	svc, _ := newCheckInService(t, &mockCheckInRepo{})

	_, err := svc.CheckIn(context.Background(), CheckInRequest{EventID: "e1", Token: "not-a-token"}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenNotFound.Code, appErrors.FromError(err).Code)
}

func TestCheckInServiceUnknownRegistration(t *testing.T) {
	svc, signer := newCheckInService(t, &mockCheckInRepo{registrations: map[string]models.Registration{}})
	token, err := signer.Mint("ghost")
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), CheckInRequest{EventID: "e1", Token: token}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenNotFound.Code, appErrors.FromError(err).Code)
}

func TestCheckInServiceWrongEvent(t *testing.T) {
	repo := &mockCheckInRepo{registrations: map[string]models.Registration{
		"r1": {ID: "r1", EventID: "e1", UserID: "u1", Status: models.RegistrationStatusConfirmed},
	}}
	svc, signer := newCheckInService(t, repo)
	token, err := signer.Mint("r1")
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), CheckInRequest{EventID: "e2", Token: token}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenEventMismatch.Code, appErrors.FromError(err).Code)
}

func TestCheckInServiceNotConfirmed(t *testing.T) {
	repo := &mockCheckInRepo{registrations: map[string]models.Registration{
		"r1": {ID: "r1", EventID: "e1", UserID: "u1", Status: models.RegistrationStatusPending},
	}}
	svc, signer := newCheckInService(t, repo)
	token, err := signer.Mint("r1")
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), CheckInRequest{EventID: "e1", Token: token}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotConfirmed.Code, appErrors.FromError(err).Code)
}
