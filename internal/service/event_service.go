package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	FindDetailByID(ctx context.Context, id string) (*models.EventDetail, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
}

type registrationCounter interface {
	CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int, error)
}

// CreateEventRequest describes event creation payload.
type CreateEventRequest struct {
	Title            string    `json:"title" validate:"required,max=200"`
	Description      string    `json:"description" validate:"max=2000"`
	Location         string    `json:"location" validate:"required,max=200"`
	StartsAt         time.Time `json:"starts_at" validate:"required"`
	EndsAt           time.Time `json:"ends_at" validate:"required"`
	Capacity         int       `json:"capacity" validate:"required,min=1"`
	RequiresApproval bool      `json:"requires_approval"`
	EligibleLevels   []string  `json:"eligible_levels" validate:"dive,oneof=BACHELOR MASTER DOCTORATE"`
	EligiblePrograms []string  `json:"eligible_programs" validate:"dive,required"`
}

// UpdateEventRequest describes event update payload.
type UpdateEventRequest struct {
	Title            string    `json:"title" validate:"required,max=200"`
	Description      string    `json:"description" validate:"max=2000"`
	Location         string    `json:"location" validate:"required,max=200"`
	StartsAt         time.Time `json:"starts_at" validate:"required"`
	EndsAt           time.Time `json:"ends_at" validate:"required"`
	Capacity         int       `json:"capacity" validate:"required,min=1"`
	RequiresApproval bool      `json:"requires_approval"`
	EligibleLevels   []string  `json:"eligible_levels" validate:"dive,oneof=BACHELOR MASTER DOCTORATE"`
	EligiblePrograms []string  `json:"eligible_programs" validate:"dive,required"`
}

// UpdateEventStatusRequest moves an event through its lifecycle.
type UpdateEventStatusRequest struct {
	Status models.EventStatus `json:"status" validate:"required,oneof=UPCOMING ONGOING COMPLETED CANCELLED"`
}

// EventService orchestrates event management.
type EventService struct {
	repo          eventRepository
	registrations registrationCounter
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewEventService constructs EventService.
func NewEventService(repo eventRepository, registrations registrationCounter, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, registrations: registrations, validator: validate, logger: logger}
}

// PurgeRenderedDocuments registers the cache used to drop rendered credential
// documents after event mutations. Badges embed the event title and schedule,
// so an edited event must not serve stale documents.
func (s *EventService) PurgeRenderedDocuments(cache *CacheService) {
	s.cache = cache
}

func (s *EventService) purgeDocuments(ctx context.Context) {
	if s.cache == nil {
		return
	}
	// Document keys are per registration, not per event; purging the whole
	// namespace trades a few re-renders for correctness.
	if err := s.cache.Invalidate(ctx, "credential:doc:*"); err != nil {
		s.logger.Warn("failed to purge rendered credential documents", zap.Error(err))
	}
}

// List returns events with pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return events, pagination, nil
}

// Get returns an event with registration tallies.
func (s *EventService) Get(ctx context.Context, id string) (*models.EventDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return detail, nil
}

// Create persists a new event.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event must end after it starts")
	}
	event := &models.Event{
		Title:            req.Title,
		Description:      req.Description,
		Location:         req.Location,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		Capacity:         req.Capacity,
		RequiresApproval: req.RequiresApproval,
		EligibleLevels:   pq.StringArray(req.EligibleLevels),
		EligiblePrograms: pq.StringArray(req.EligiblePrograms),
		Status:           models.EventStatusUpcoming,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("title", event.Title))
	return event, nil
}

// Update changes mutable event fields. Capacity cannot drop below the
// number of already confirmed registrations.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event must end after it starts")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event is no longer editable")
	}
	if req.Capacity < event.Capacity {
		confirmed, err := s.registrations.CountByStatus(ctx, id, models.RegistrationStatusConfirmed)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count confirmed registrations")
		}
		if req.Capacity < confirmed {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity cannot drop below confirmed registrations")
		}
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Location = req.Location
	event.StartsAt = req.StartsAt
	event.EndsAt = req.EndsAt
	event.Capacity = req.Capacity
	event.RequiresApproval = req.RequiresApproval
	event.EligibleLevels = pq.StringArray(req.EligibleLevels)
	event.EligiblePrograms = pq.StringArray(req.EligiblePrograms)

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	s.purgeDocuments(ctx)
	s.logger.Info("event updated", zap.String("event_id", event.ID))
	return event, nil
}

var eventTransitions = map[models.EventStatus][]models.EventStatus{
	models.EventStatusUpcoming: {models.EventStatusOngoing, models.EventStatusCancelled},
	models.EventStatusOngoing:  {models.EventStatusCompleted, models.EventStatusCancelled},
}

// UpdateStatus moves an event through its lifecycle. Terminal states accept
// no further transitions.
func (s *EventService) UpdateStatus(ctx context.Context, id string, req UpdateEventStatusRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	allowed := false
	for _, next := range eventTransitions[event.Status] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "event status transition not allowed")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}
	event.Status = req.Status
	s.purgeDocuments(ctx)
	s.logger.Info("event status changed", zap.String("event_id", id), zap.String("status", string(req.Status)))
	return event, nil
}
