package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/credential"
	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type checkInRepository interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
	CheckIn(ctx context.Context, id, actorID string, at time.Time) (bool, error)
}

type tokenParser interface {
	Parse(token string) (string, error)
}

// CheckInRequest describes a credential scan at an event entrance.
type CheckInRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Token   string `json:"token" validate:"required"`
}

// CheckInService validates scanned credentials and records attendance.
type CheckInService struct {
	repo      checkInRepository
	parser    tokenParser
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCheckInService constructs CheckInService.
func NewCheckInService(repo checkInRepository, parser tokenParser, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CheckInService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInService{repo: repo, parser: parser, metrics: metrics, validator: validate, logger: logger}
}

// CheckIn validates a scanned token against the event being staffed and
// stamps attendance. Scanning the same credential twice is not an error;
// the result reports whether this scan was the first.
func (s *CheckInService) CheckIn(ctx context.Context, req CheckInRequest, actorID string) (*models.CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	registrationID, err := s.parser.Parse(req.Token)
	if err != nil {
		if errors.Is(err, credential.ErrInvalidToken) {
			return nil, appErrors.Clone(appErrors.ErrTokenNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to parse credential token")
	}

	registration, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrTokenNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if registration.EventID != req.EventID {
		return nil, appErrors.Clone(appErrors.ErrTokenEventMismatch, "")
	}
	if registration.Status != models.RegistrationStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrNotConfirmed, "")
	}

	first, err := s.repo.CheckIn(ctx, registrationID, actorID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}

	detail, err := s.repo.FindDetailByID(ctx, registrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration detail")
	}
	// The conditional update affects no rows for a repeat scan, but also
	// when the registration left CONFIRMED concurrently. Only a stamped
	// row counts as attendance.
	if detail.CheckedInAt == nil {
		return nil, appErrors.Clone(appErrors.ErrNotConfirmed, "")
	}

	s.metrics.RecordCheckIn(first)
	s.logger.Info("credential scanned",
		zap.String("registration_id", registrationID),
		zap.String("event_id", req.EventID),
		zap.Bool("first_check_in", first))

	return &models.CheckInResult{Registration: *detail, FirstCheckIn: first}, nil
}
