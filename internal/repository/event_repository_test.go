package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-events-api/internal/models"
)

func eventRows() *sqlmock.Rows {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "title", "description", "location", "starts_at", "ends_at",
		"capacity", "requires_approval", "eligible_levels", "eligible_programs",
		"status", "created_at", "updated_at",
	}).AddRow(
		"e1", "Orientation", "Welcome session", "Main Hall",
		now, now.Add(2*time.Hour), 100, false,
		pq.StringArray{"BACHELOR"}, pq.StringArray{},
		models.EventStatusUpcoming, now, now,
	)
}

func TestEventRepositoryListFiltersByStatusAndSearch(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE 1=1 AND status = $1 AND (LOWER(title) LIKE $2 OR LOWER(location) LIKE $2) ORDER BY starts_at ASC LIMIT 20 OFFSET 0")).
		WithArgs(models.EventStatusUpcoming, "%orient%").
		WillReturnRows(eventRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM events WHERE 1=1 AND status = $1")).
		WithArgs(models.EventStatusUpcoming, "%orient%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	events, total, err := repo.List(context.Background(), models.EventFilter{
		Status: models.EventStatusUpcoming,
		Search: "Orient",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "Orientation", events[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs("e1").
		WillReturnRows(eventRows())

	event, err := repo.FindByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", event.ID)
	assert.Equal(t, pq.StringArray{"BACHELOR"}, event.EligibleLevels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "location", "starts_at", "ends_at",
		"capacity", "requires_approval", "eligible_levels", "eligible_programs",
		"status", "created_at", "updated_at", "confirmed_count", "pending_count",
	}).AddRow(
		"e1", "Orientation", "Welcome session", "Main Hall",
		now, now.Add(2*time.Hour), 100, true,
		pq.StringArray{}, pq.StringArray{},
		models.EventStatusUpcoming, now, now, 42, 7,
	)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN registrations r ON r.event_id = e.id")).
		WithArgs("e1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 42, detail.ConfirmedCount)
	assert.Equal(t, 7, detail.PendingCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("INSERT INTO events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.Event{
		Title:    "Career Fair",
		Location: "Expo Center",
		StartsAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 4, 1, 17, 0, 0, 0, time.UTC),
		Capacity: 500,
	}
	err := repo.Create(context.Background(), event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, models.EventStatusUpcoming, event.Status)
	assert.False(t, event.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("e1", models.EventStatusOngoing, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "e1", models.EventStatusOngoing)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("ghost", models.EventStatusCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "ghost", models.EventStatusCancelled)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
