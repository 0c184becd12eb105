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

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type mockEventRepo struct {
	events   map[string]models.Event
	statuses map[string]models.EventStatus
}

func (m *mockEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	var list []models.Event
	for _, e := range m.events {
		list = append(list, e)
	}
	return list, len(list), nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if e, ok := m.events[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) FindDetailByID(ctx context.Context, id string) (*models.EventDetail, error) {
	if e, ok := m.events[id]; ok {
		return &models.EventDetail{Event: e, ConfirmedCount: 3, PendingCount: 1}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	if m.events == nil {
		m.events = make(map[string]models.Event)
	}
	if event.ID == "" {
		event.ID = "new-event"
	}
	m.events[event.ID] = *event
	return nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.Event) error {
	m.events[event.ID] = *event
	return nil
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	e, ok := m.events[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	m.events[id] = e
	if m.statuses == nil {
		m.statuses = make(map[string]models.EventStatus)
	}
	m.statuses[id] = status
	return nil
}

type mockRegistrationCounter struct {
	confirmed int
}

func (m *mockRegistrationCounter) CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int, error) {
	return m.confirmed, nil
}

func validCreateRequest() CreateEventRequest {
	return CreateEventRequest{
		Title:    "Orientation",
		Location: "Main Hall",
		StartsAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Capacity: 50,
	}
}

func TestEventServiceCreate(t *testing.T) {
	repo := &mockEventRepo{}
	svc := NewEventService(repo, &mockRegistrationCounter{}, validator.New(), zap.NewNop())

	event, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusUpcoming, event.Status)
	assert.NotEmpty(t, event.ID)
}

func TestEventServiceCreateRejectsInvertedSchedule(t *testing.T) {
	svc := NewEventService(&mockEventRepo{}, &mockRegistrationCounter{}, validator.New(), zap.NewNop())

	req := validCreateRequest()
	req.EndsAt = req.StartsAt.Add(-time.Hour)
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceCreateRejectsUnknownLevel(t *testing.T) {
	svc := NewEventService(&mockEventRepo{}, &mockRegistrationCounter{}, validator.New(), zap.NewNop())

	req := validCreateRequest()
	req.EligibleLevels = []string{"KINDERGARTEN"}
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceUpdateCapacityGuard(t *testing.T) {
	repo := &mockEventRepo{events: map[string]models.Event{
		"e1": {ID: "e1", Title: "Orientation", Location: "Main Hall", Capacity: 50, Status: models.EventStatusUpcoming,
			StartsAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), EndsAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
	}}
	counter := &mockRegistrationCounter{confirmed: 30}
	svc := NewEventService(repo, counter, validator.New(), zap.NewNop())

	req := UpdateEventRequest{
		Title:    "Orientation",
		Location: "Main Hall",
		StartsAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Capacity: 20,
	}
	_, err := svc.Update(context.Background(), "e1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	req.Capacity = 30
	event, err := svc.Update(context.Background(), "e1", req)
	require.NoError(t, err)
	assert.Equal(t, 30, event.Capacity)
}

func TestEventServiceUpdateStatusTransitions(t *testing.T) {
	repo := &mockEventRepo{events: map[string]models.Event{
		"e1": {ID: "e1", Status: models.EventStatusUpcoming},
	}}
	svc := NewEventService(repo, &mockRegistrationCounter{}, validator.New(), zap.NewNop())

	event, err := svc.UpdateStatus(context.Background(), "e1", UpdateEventStatusRequest{Status: models.EventStatusOngoing})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusOngoing, event.Status)

	event, err = svc.UpdateStatus(context.Background(), "e1", UpdateEventStatusRequest{Status: models.EventStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCompleted, event.Status)

	// Terminal states accept nothing further.
	_, err = svc.UpdateStatus(context.Background(), "e1", UpdateEventStatusRequest{Status: models.EventStatusOngoing})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEventServiceUpdateStatusSkippingOngoingNotAllowed(t *testing.T) {
	repo := &mockEventRepo{events: map[string]models.Event{
		"e1": {ID: "e1", Status: models.EventStatusUpcoming},
	}}
	svc := NewEventService(repo, &mockRegistrationCounter{}, validator.New(), zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "e1", UpdateEventStatusRequest{Status: models.EventStatusCompleted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEventServiceCancelFromUpcoming(t *testing.T) {
	repo := &mockEventRepo{events: map[string]models.Event{
		"e1": {ID: "e1", Status: models.EventStatusUpcoming},
	}}
	svc := NewEventService(repo, &mockRegistrationCounter{}, validator.New(), zap.NewNop())

	event, err := svc.UpdateStatus(context.Background(), "e1", UpdateEventStatusRequest{Status: models.EventStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, event.Status)
}

type mockCacheRepo struct {
	patterns []string
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func TestEventServiceUpdatePurgesRenderedDocuments(t *testing.T) {
	repo := &mockEventRepo{events: map[string]models.Event{
		"e1": {ID: "e1", Title: "Orientation", Location: "Main Hall", Capacity: 50, Status: models.EventStatusUpcoming,
			StartsAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), EndsAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
	}}
	cacheRepo := &mockCacheRepo{}
	svc := NewEventService(repo, &mockRegistrationCounter{}, validator.New(), zap.NewNop())
	svc.PurgeRenderedDocuments(NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true))

	req := UpdateEventRequest{
		Title:    "Orientation Day",
		Location: "Main Hall",
		StartsAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Capacity: 50,
	}
	_, err := svc.Update(context.Background(), "e1", req)
	require.NoError(t, err)
	require.Len(t, cacheRepo.patterns, 1)
	assert.Equal(t, "credential:doc:*", cacheRepo.patterns[0])

	_, err = svc.UpdateStatus(context.Background(), "e1", UpdateEventStatusRequest{Status: models.EventStatusOngoing})
	require.NoError(t, err)
	assert.Len(t, cacheRepo.patterns, 2)
}

func TestEventServiceGet(t *testing.T) {
	repo := &mockEventRepo{events: map[string]models.Event{"e1": {ID: "e1", Title: "Orientation"}}}
	svc := NewEventService(repo, &mockRegistrationCounter{}, validator.New(), zap.NewNop())

	detail, err := svc.Get(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 3, detail.ConfirmedCount)
	assert.Equal(t, 1, detail.PendingCount)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
