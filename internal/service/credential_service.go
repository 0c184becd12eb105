package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/pkg/badge"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/qr"
)

type credentialRegistrationReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
}

type tokenMinter interface {
	Mint(registrationID string) (string, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Credential is the issued attendance credential for a confirmed registration.
type Credential struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	HolderName     string `json:"holder_name"`
	Token          string `json:"token"`
}

// CredentialOptions carries rendering configuration.
type CredentialOptions struct {
	QRSize           int
	DocumentCacheTTL time.Duration
	OrganizerName    string
	OrganizerEmail   string
	OrganizerPhone   string
}

type cachedDocument struct {
	Data []byte `json:"data"`
}

// CredentialService issues attendance credentials and renders their
// printable documents. Issuance is derivation, not storage; the same
// registration always yields the same token.
type CredentialService struct {
	registrations credentialRegistrationReader
	events        eventReader
	signer        tokenMinter
	cache         cacheStore
	metrics       *MetricsService
	opts          CredentialOptions
	logger        *zap.Logger
}

// NewCredentialService constructs CredentialService.
func NewCredentialService(registrations credentialRegistrationReader, events eventReader, signer tokenMinter, cache cacheStore, metrics *MetricsService, opts CredentialOptions, logger *zap.Logger) *CredentialService {
	if opts.QRSize <= 0 {
		opts.QRSize = qr.DefaultSize
	}
	if opts.DocumentCacheTTL <= 0 {
		opts.DocumentCacheTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{
		registrations: registrations,
		events:        events,
		signer:        signer,
		cache:         cache,
		metrics:       metrics,
		opts:          opts,
		logger:        logger,
	}
}

// Issue returns the credential for a confirmed registration. Students can
// only obtain credentials for their own registrations.
func (s *CredentialService) Issue(ctx context.Context, registrationID, actorID string, actorRole models.UserRole) (*Credential, error) {
	registration, err := s.loadConfirmed(ctx, registrationID, actorID, actorRole)
	if err != nil {
		return nil, err
	}

	token, err := s.signer.Mint(registration.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint credential token")
	}

	return &Credential{
		RegistrationID: registration.ID,
		EventID:        registration.EventID,
		HolderName:     registration.UserName,
		Token:          token,
	}, nil
}

// RenderDocument returns the printable PDF credential for a confirmed
// registration. Rendered documents are cached; identical inputs produce
// identical bytes, so a cache hit is indistinguishable from a re-render.
func (s *CredentialService) RenderDocument(ctx context.Context, registrationID, actorID string, actorRole models.UserRole) ([]byte, error) {
	registration, err := s.loadConfirmed(ctx, registrationID, actorID, actorRole)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("credential:doc:%s", registration.ID)
	var cached cachedDocument
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached.Data) > 0 {
			s.metrics.RecordCacheOperation(true, 0)
			return cached.Data, nil
		} else if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("credential document cache read failed", zap.String("registration_id", registration.ID), zap.Error(err))
		} else {
			s.metrics.RecordCacheOperation(false, 0)
		}
	}

	event, err := s.events.FindByID(ctx, registration.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	token, err := s.signer.Mint(registration.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint credential token")
	}
	qrPNG, err := qr.Encode(token, s.opts.QRSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode credential QR")
	}

	document, err := badge.Render(badge.Document{
		EventTitle:     event.Title,
		EventLocation:  event.Location,
		StartsAt:       event.StartsAt,
		EndsAt:         event.EndsAt,
		HolderName:     registration.UserName,
		OrganizerName:  s.opts.OrganizerName,
		OrganizerEmail: s.opts.OrganizerEmail,
		OrganizerPhone: s.opts.OrganizerPhone,
		QRPNG:          qrPNG,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render credential document")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedDocument{Data: document}, s.opts.DocumentCacheTTL); err != nil {
			s.logger.Warn("credential document cache write failed", zap.String("registration_id", registration.ID), zap.Error(err))
		}
	}

	s.metrics.RecordCredentialRendered()
	return document, nil
}

func (s *CredentialService) loadConfirmed(ctx context.Context, registrationID, actorID string, actorRole models.UserRole) (*models.RegistrationDetail, error) {
	registration, err := s.registrations.FindDetailByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if actorRole == models.RoleStudent && registration.UserID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot access another user's credential")
	}
	if registration.Status != models.RegistrationStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrNotConfirmed, "")
	}
	return registration, nil
}
