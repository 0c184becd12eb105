package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/credential"
	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type mockDetailReader struct {
	details map[string]*models.RegistrationDetail
}

func (m *mockDetailReader) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

type mockCache struct {
	entries map[string][]byte
	sets    int
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	m.sets++
	return nil
}

func confirmedDetail() *models.RegistrationDetail {
	return &models.RegistrationDetail{
		Registration: models.Registration{ID: "r1", EventID: "e1", UserID: "u1", Status: models.RegistrationStatusConfirmed},
		EventTitle:   "Orientation",
		UserName:     "Dana Holder",
		UserEmail:    "dana@campus.example",
	}
}

func badgeEvent() *models.Event {
	return &models.Event{
		ID:       "e1",
		Title:    "Orientation",
		Location: "Main Hall",
		StartsAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Status:   models.EventStatusUpcoming,
	}
}

func newCredentialService(t *testing.T, reader *mockDetailReader, cache *mockCache) *CredentialService {
	t.Helper()
	signer, err := credential.NewSigner("test-secret")
	require.NoError(t, err)
	events := &mockEventReader{events: map[string]*models.Event{"e1": badgeEvent()}}
	var store cacheStore
	if cache != nil {
		store = cache
	}
	return NewCredentialService(reader, events, signer, store, nil, CredentialOptions{
		OrganizerName:  "Student Affairs Office",
		OrganizerEmail: "events@campus.example",
	}, zap.NewNop())
}

func TestCredentialServiceIssueDeterministic(t *testing.T) {
	reader := &mockDetailReader{details: map[string]*models.RegistrationDetail{"r1": confirmedDetail()}}
	svc := newCredentialService(t, reader, nil)

	first, err := svc.Issue(context.Background(), "r1", "u1", models.RoleStudent)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "r1", "u1", models.RoleStudent)
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, "e1", first.EventID)
	assert.Equal(t, "Dana Holder", first.HolderName)
}

func TestCredentialServiceIssueNotConfirmed(t *testing.T) {
	detail := confirmedDetail()
	detail.Status = models.RegistrationStatusPending
	reader := &mockDetailReader{details: map[string]*models.RegistrationDetail{"r1": detail}}
	svc := newCredentialService(t, reader, nil)

	_, err := svc.Issue(context.Background(), "r1", "u1", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotConfirmed.Code, appErrors.FromError(err).Code)
}

func TestCredentialServiceIssueForeignStudentForbidden(t *testing.T) {
	reader := &mockDetailReader{details: map[string]*models.RegistrationDetail{"r1": confirmedDetail()}}
	svc := newCredentialService(t, reader, nil)

	_, err := svc.Issue(context.Background(), "r1", "u2", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCredentialServiceIssueStaffCanAccessAnyRegistration(t *testing.T) {
	reader := &mockDetailReader{details: map[string]*models.RegistrationDetail{"r1": confirmedDetail()}}
	svc := newCredentialService(t, reader, nil)

	cred, err := svc.Issue(context.Background(), "r1", "staff-1", models.RoleStaff)
	require.NoError(t, err)
	assert.NotEmpty(t, cred.Token)
}

func TestCredentialServiceRenderDocument(t *testing.T) {
	reader := &mockDetailReader{details: map[string]*models.RegistrationDetail{"r1": confirmedDetail()}}
	cache := &mockCache{}
	svc := newCredentialService(t, reader, cache)

	document, err := svc.RenderDocument(context.Background(), "r1", "u1", models.RoleStudent)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(document, []byte("%PDF")))
	assert.Equal(t, 1, cache.sets)

	// Second request is served from cache and returns identical bytes.
	again, err := svc.RenderDocument(context.Background(), "r1", "u1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, document, again)
	assert.Equal(t, 1, cache.sets)
}

func TestCredentialServiceRenderDocumentDeterministic(t *testing.T) {
	reader := &mockDetailReader{details: map[string]*models.RegistrationDetail{"r1": confirmedDetail()}}
	svc := newCredentialService(t, reader, nil)

	first, err := svc.RenderDocument(context.Background(), "r1", "u1", models.RoleStudent)
	require.NoError(t, err)
	second, err := svc.RenderDocument(context.Background(), "r1", "u1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCredentialServiceRenderDocumentUnknownRegistration(t *testing.T) {
	reader := &mockDetailReader{details: map[string]*models.RegistrationDetail{}}
	svc := newCredentialService(t, reader, nil)

	_, err := svc.RenderDocument(context.Background(), "missing", "u1", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
