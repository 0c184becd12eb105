package models

import (
	"time"

	"github.com/lib/pq"
)

// EventStatus represents the lifecycle of an event.
type EventStatus string

// Possible event statuses. CANCELLED is reachable from any non-terminal state.
const (
	EventStatusUpcoming  EventStatus = "UPCOMING"
	EventStatusOngoing   EventStatus = "ONGOING"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Terminal reports whether no further status transition is allowed.
func (s EventStatus) Terminal() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

// Event represents a registrable campus event.
// Empty eligibility sets mean no restriction on that axis.
type Event struct {
	ID               string         `db:"id" json:"id"`
	Title            string         `db:"title" json:"title"`
	Description      string         `db:"description" json:"description"`
	Location         string         `db:"location" json:"location"`
	StartsAt         time.Time      `db:"starts_at" json:"starts_at"`
	EndsAt           time.Time      `db:"ends_at" json:"ends_at"`
	Capacity         int            `db:"capacity" json:"capacity"`
	RequiresApproval bool           `db:"requires_approval" json:"requires_approval"`
	EligibleLevels   pq.StringArray `db:"eligible_levels" json:"eligible_levels"`
	EligiblePrograms pq.StringArray `db:"eligible_programs" json:"eligible_programs"`
	Status           EventStatus    `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// EventDetail enriches Event with registration tallies.
type EventDetail struct {
	Event
	ConfirmedCount int `db:"confirmed_count" json:"confirmed_count"`
	PendingCount   int `db:"pending_count" json:"pending_count"`
}

// EventFilter provides filters for listing events.
type EventFilter struct {
	Status    EventStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
