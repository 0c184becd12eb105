package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/repository"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/export"
	"github.com/noah-isme/campus-events-api/pkg/jobs"
)

type registrationRepository interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
	CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int, error)
	Create(ctx context.Context, registration *models.Registration) error
	Approve(ctx context.Context, id, decidedBy string, comment *string) error
	Reject(ctx context.Context, id, decidedBy string, comment *string) error
	Cancel(ctx context.Context, id string) error
}

type eventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RegisterRequest describes a registration attempt.
type RegisterRequest struct {
	EventID string `json:"event_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
}

// Decision values accepted by Decide.
const (
	DecisionApprove = "APPROVE"
	DecisionReject  = "REJECT"
)

// DecideRequest describes an approve or reject decision on a pending registration.
type DecideRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Comment  *string `json:"comment,omitempty" validate:"omitempty,max=500"`
}

// Export formats accepted by ExportAttendance.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportArtifact is the payload carried by attendance archive jobs.
type ExportArtifact struct {
	Filename string
	Data     []byte
}

// RegistrationService orchestrates the registration lifecycle.
type RegistrationService struct {
	repo        registrationRepository
	events      eventReader
	users       userReader
	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
	archive     *jobs.Queue
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(repo registrationRepository, events eventReader, users userReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		repo:        repo,
		events:      events,
		users:       users,
		csvExporter: export.NewCSVExporter(),
		pdfExporter: export.NewPDFExporter(),
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// ArchiveExports routes a copy of every rendered attendance sheet through the
// given queue. The queue handler is responsible for durable storage.
func (s *RegistrationService) ArchiveExports(queue *jobs.Queue) {
	s.archive = queue
}

// List returns registrations with pagination metadata.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error) {
	registrations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
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
	return registrations, pagination, nil
}

// Get returns a registration with event and holder info.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return detail, nil
}

// Register attempts to register a user for an event. Preconditions are
// checked in a fixed order: event open, capacity, eligibility, uniqueness.
// The repository re-checks capacity and uniqueness under the event row lock.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*models.RegistrationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status != models.EventStatusUpcoming {
		return nil, appErrors.Clone(appErrors.ErrEventNotOpen, "")
	}

	confirmed, err := s.repo.CountByStatus(ctx, event.ID, models.RegistrationStatusConfirmed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count confirmed registrations")
	}
	if confirmed >= event.Capacity {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	if result := EvaluateEligibility(event, user); !result.Eligible {
		return nil, appErrors.Clone(appErrors.ErrNotEligible, result.Reason)
	}

	status := models.RegistrationStatusConfirmed
	if event.RequiresApproval {
		status = models.RegistrationStatusPending
	}

	registration := &models.Registration{
		EventID:   event.ID,
		UserID:    user.ID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, registration); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateRegistration):
			return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
		case errors.Is(err, repository.ErrCapacityExhausted):
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
		}
	}

	s.metrics.RecordRegistration(status)
	s.logger.Info("registration created",
		zap.String("registration_id", registration.ID),
		zap.String("event_id", event.ID),
		zap.String("user_id", user.ID),
		zap.String("status", string(status)))

	detail, err := s.repo.FindDetailByID(ctx, registration.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration detail")
	}
	return detail, nil
}

// Decide resolves a pending registration. Approval re-checks capacity under
// the event row lock so the last seat cannot be granted twice.
func (s *RegistrationService) Decide(ctx context.Context, id string, req DecideRequest, decidedBy string) (*models.RegistrationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	var err error
	switch req.Decision {
	case DecisionApprove:
		err = s.repo.Approve(ctx, id, decidedBy, req.Comment)
	case DecisionReject:
		err = s.repo.Reject(ctx, id, decidedBy, req.Comment)
	}
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		case errors.Is(err, repository.ErrInvalidState):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "registration is not pending")
		case errors.Is(err, repository.ErrCapacityExhausted):
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide registration")
		}
	}

	s.metrics.RecordDecision(req.Decision)
	s.logger.Info("registration decided",
		zap.String("registration_id", id),
		zap.String("decision", req.Decision),
		zap.String("decided_by", decidedBy))

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration detail")
	}
	return detail, nil
}

// Cancel withdraws a registration. Students may only cancel their own;
// checked-in registrations cannot be cancelled.
func (s *RegistrationService) Cancel(ctx context.Context, id, actorID string, actorRole models.UserRole) (*models.RegistrationDetail, error) {
	registration, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if actorRole == models.RoleStudent && registration.UserID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot cancel another user's registration")
	}

	if err := s.repo.Cancel(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		case errors.Is(err, repository.ErrInvalidState):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "registration cannot be cancelled")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
		}
	}

	s.metrics.RecordDecision("CANCEL")
	s.logger.Info("registration cancelled",
		zap.String("registration_id", id),
		zap.String("actor_id", actorID))

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration detail")
	}
	return detail, nil
}

// ExportAttendance renders the attendance sheet for an event. Supported
// formats are csv (default) and pdf.
func (s *RegistrationService) ExportAttendance(ctx context.Context, eventID, format string) ([]byte, string, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	filter := models.RegistrationFilter{
		EventID:  eventID,
		Status:   models.RegistrationStatusConfirmed,
		Page:     1,
		PageSize: 100,
		SortBy:   "user_name",
	}
	var rows []map[string]string
	for {
		page, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
		}
		for _, reg := range page {
			checkedIn := ""
			if reg.CheckedInAt != nil {
				checkedIn = reg.CheckedInAt.UTC().Format(time.RFC3339)
			}
			rows = append(rows, map[string]string{
				"Name":          reg.UserName,
				"Email":         reg.UserEmail,
				"Registered At": reg.CreatedAt.UTC().Format(time.RFC3339),
				"Checked In At": checkedIn,
			})
		}
		if len(rows) >= total || len(page) == 0 {
			break
		}
		filter.Page++
	}

	dataset := export.Dataset{
		Headers: []string{"Name", "Email", "Registered At", "Checked In At"},
		Rows:    rows,
	}

	var data []byte
	if format == ExportFormatPDF {
		data, err = s.pdfExporter.Render(dataset, event.Title)
	} else {
		data, err = s.csvExporter.Render(dataset)
	}
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance export")
	}

	filename := fmt.Sprintf("attendance-%s-%s.%s", event.ID, time.Now().UTC().Format("20060102"), format)
	if s.archive != nil {
		job := jobs.Job{
			ID:      filename,
			Type:    "attendance_export",
			Payload: ExportArtifact{Filename: filename, Data: data},
		}
		if err := s.archive.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue export archive", zap.String("filename", filename), zap.Error(err))
		}
	}
	return data, filename, nil
}
