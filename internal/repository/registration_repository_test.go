package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-events-api/internal/models"
)

func newRegistrationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRegistrationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("e1", "u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2")).
		WithArgs("e1", models.RegistrationStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("INSERT INTO registrations").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reg := &models.Registration{EventID: "e1", UserID: "u1", Status: models.RegistrationStatusConfirmed}
	err := repo.Create(context.Background(), reg)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("e1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Registration{EventID: "e1", UserID: "u1", Status: models.RegistrationStatusConfirmed})
	assert.ErrorIs(t, err, ErrDuplicateRegistration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateCapacityExhausted(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("e1", "u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2")).
		WithArgs("e1", models.RegistrationStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Registration{EventID: "e1", UserID: "u1", Status: models.RegistrationStatusConfirmed})
	assert.ErrorIs(t, err, ErrCapacityExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT r.status, r.event_id, e.capacity").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "event_id", "capacity"}).
			AddRow(string(models.RegistrationStatusPending), "e1", 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2")).
		WithArgs("e1", models.RegistrationStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE registrations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Approve(context.Background(), "r1", "staff-1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryApproveNotPending(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT r.status, r.event_id, e.capacity").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "event_id", "capacity"}).
			AddRow(string(models.RegistrationStatusConfirmed), "e1", 2))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), "r1", "staff-1", nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryApproveLastSeatTaken(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT r.status, r.event_id, e.capacity").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "event_id", "capacity"}).
			AddRow(string(models.RegistrationStatusPending), "e1", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2")).
		WithArgs("e1", models.RegistrationStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), "r1", "staff-1", nil)
	assert.ErrorIs(t, err, ErrCapacityExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryRejectWrongState(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec("UPDATE registrations SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM registrations WHERE id = $1 LIMIT 1")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	err := repo.Reject(context.Background(), "r1", "staff-1", nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCheckInFirstAndSecondScan(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE registrations SET checked_in_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE registrations SET checked_in_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.CheckIn(context.Background(), "r1", "staff-1", at)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.CheckIn(context.Background(), "r1", "staff-1", at)
	require.NoError(t, err)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2")).
		WithArgs("e1", models.RegistrationStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByStatus(context.Background(), "e1", models.RegistrationStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
