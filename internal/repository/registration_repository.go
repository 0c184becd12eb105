package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-events-api/internal/models"
)

// RegistrationRepository handles persistence of registrations.
//
// Capacity-coupled writes (Create, Approve) run inside a transaction that
// locks the event row with SELECT ... FOR UPDATE, so the seat count they
// observe cannot change before their own write commits. Check-in uses a
// single conditional UPDATE instead; the row predicate is the atomicity.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, event_id, user_id, status, created_at, decided_at, decided_by, decision_comment, checked_in_at, checked_in_by`

const registrationDetailQuery = `SELECT r.id, r.event_id, r.user_id, r.status, r.created_at, r.decided_at, r.decided_by, r.decision_comment, r.checked_in_at, r.checked_in_by,
        e.title AS event_title, u.full_name AS user_name, u.email AS user_email
        FROM registrations r
        LEFT JOIN events e ON e.id = r.event_id
        LEFT JOIN users u ON u.id = r.user_id`

// List returns registrations filtered by the provided criteria.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	base := `FROM registrations r
LEFT JOIN events e ON e.id = r.event_id
LEFT JOIN users u ON u.id = r.user_id`
	var conditions []string
	var args []interface{}

	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("r.event_id = $%d", len(args)+1))
		args = append(args, filter.EventID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CheckedIn != nil {
		if *filter.CheckedIn {
			conditions = append(conditions, "r.checked_in_at IS NOT NULL")
		} else {
			conditions = append(conditions, "r.checked_in_at IS NULL")
		}
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":    "r.created_at",
		"user_name":     "u.full_name",
		"checked_in_at": "r.checked_in_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "r.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT r.id, r.event_id, r.user_id, r.status, r.created_at, r.decided_at, r.decided_by, r.decision_comment, r.checked_in_at, r.checked_in_by,
        e.title AS event_title, u.full_name AS user_name, u.email AS user_email
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var registrations []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf("SELECT %s FROM registrations WHERE id = $1", registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		return nil, err
	}
	return &registration, nil
}

// FindDetailByID returns a registration with event and holder info.
func (r *RegistrationRepository) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	query := registrationDetailQuery + " WHERE r.id = $1"
	var detail models.RegistrationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByEventAndUser returns the registration for an (event, user) pair.
func (r *RegistrationRepository) FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	query := fmt.Sprintf("SELECT %s FROM registrations WHERE event_id = $1 AND user_id = $2 LIMIT 1", registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, eventID, userID); err != nil {
		return nil, err
	}
	return &registration, nil
}

// CountByStatus returns the number of registrations in a status for an event.
func (r *RegistrationRepository) CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID, status); err != nil {
		return 0, fmt.Errorf("count registrations by status: %w", err)
	}
	return count, nil
}

// Create inserts a registration while holding a lock on the event row.
// Capacity (CONFIRMED seats) and (event, user) uniqueness are re-checked
// under the lock so concurrent registrations cannot overcommit.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	if err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, registration.EventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	var exists int
	err = tx.GetContext(ctx, &exists, `SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2 LIMIT 1`, registration.EventID, registration.UserID)
	if err == nil {
		err = ErrDuplicateRegistration
		return err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check duplicate registration: %w", err)
	}
	err = nil

	var confirmed int
	if err = tx.GetContext(ctx, &confirmed, `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`, registration.EventID, models.RegistrationStatusConfirmed); err != nil {
		return fmt.Errorf("count confirmed registrations: %w", err)
	}
	if confirmed >= capacity {
		err = ErrCapacityExhausted
		return err
	}

	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.CreatedAt.IsZero() {
		registration.CreatedAt = time.Now().UTC()
	}
	const insert = `INSERT INTO registrations (id, event_id, user_id, status, created_at)
        VALUES (:id, :event_id, :user_id, :status, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, registration); err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	return nil
}

// Approve confirms a pending registration, re-checking capacity under the
// event row lock so two approvals cannot both take the last seat.
func (r *RegistrationRepository) Approve(ctx context.Context, id, decidedBy string, comment *string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		Status   models.RegistrationStatus `db:"status"`
		EventID  string                    `db:"event_id"`
		Capacity int                       `db:"capacity"`
	}
	err = tx.GetContext(ctx, &current, `SELECT r.status, r.event_id, e.capacity
        FROM registrations r JOIN events e ON e.id = r.event_id
        WHERE r.id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock registration row: %w", err)
	}
	if current.Status != models.RegistrationStatusPending {
		err = ErrInvalidState
		return err
	}

	var confirmed int
	if err = tx.GetContext(ctx, &confirmed, `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`, current.EventID, models.RegistrationStatusConfirmed); err != nil {
		return fmt.Errorf("count confirmed registrations: %w", err)
	}
	if confirmed >= current.Capacity {
		err = ErrCapacityExhausted
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE registrations SET status = $2, decided_at = $3, decided_by = $4, decision_comment = $5 WHERE id = $1`,
		id, models.RegistrationStatusConfirmed, time.Now().UTC(), decidedBy, comment); err != nil {
		return fmt.Errorf("approve registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit approval: %w", err)
	}
	return nil
}

// Reject marks a pending registration as rejected. No capacity check needed.
func (r *RegistrationRepository) Reject(ctx context.Context, id, decidedBy string, comment *string) error {
	const query = `UPDATE registrations SET status = $2, decided_at = $3, decided_by = $4, decision_comment = $5 WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.RegistrationStatusRejected, time.Now().UTC(), decidedBy, comment, models.RegistrationStatusPending)
	if err != nil {
		return fmt.Errorf("reject registration: %w", err)
	}
	return r.resolveConditional(ctx, res, id)
}

// Cancel marks a registration as cancelled. Only pending or confirmed
// registrations that have not checked in can be cancelled.
func (r *RegistrationRepository) Cancel(ctx context.Context, id string) error {
	const query = `UPDATE registrations SET status = $2, decided_at = $3 WHERE id = $1 AND status IN ($4, $5) AND checked_in_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, models.RegistrationStatusCancelled, time.Now().UTC(), models.RegistrationStatusPending, models.RegistrationStatusConfirmed)
	if err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}
	return r.resolveConditional(ctx, res, id)
}

// CheckIn stamps checked_in_at exactly once. The returned bool is true only
// for the scan that performed the write; a later scan of the same credential
// affects no rows and returns false.
func (r *RegistrationRepository) CheckIn(ctx context.Context, id, actorID string, at time.Time) (bool, error) {
	const query = `UPDATE registrations SET checked_in_at = $2, checked_in_by = $3 WHERE id = $1 AND status = $4 AND checked_in_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at, actorID, models.RegistrationStatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("check in registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check in registration: %w", err)
	}
	return affected == 1, nil
}

// resolveConditional distinguishes "row missing" from "wrong state" after a
// conditional update touched nothing.
func (r *RegistrationRepository) resolveConditional(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve registration update: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM registrations WHERE id = $1 LIMIT 1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("resolve registration update: %w", err)
	}
	return ErrInvalidState
}
