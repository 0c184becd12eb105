package models

import "time"

// RegistrationStatus represents the lifecycle of a registration.
type RegistrationStatus string

// Registration statuses. REJECTED and CANCELLED are terminal; CONFIRMED
// accepts only the check-in side effect.
const (
	RegistrationStatusPending   RegistrationStatus = "PENDING"
	RegistrationStatusConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationStatusRejected  RegistrationStatus = "REJECTED"
	RegistrationStatusCancelled RegistrationStatus = "CANCELLED"
)

// Registration captures a user's registration for an event.
// CheckedInAt is set exactly once and only while status is CONFIRMED.
type Registration struct {
	ID              string             `db:"id" json:"id"`
	EventID         string             `db:"event_id" json:"event_id"`
	UserID          string             `db:"user_id" json:"user_id"`
	Status          RegistrationStatus `db:"status" json:"status"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	DecidedAt       *time.Time         `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy       *string            `db:"decided_by" json:"decided_by,omitempty"`
	DecisionComment *string            `db:"decision_comment" json:"decision_comment,omitempty"`
	CheckedInAt     *time.Time         `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedInBy     *string            `db:"checked_in_by" json:"checked_in_by,omitempty"`
}

// RegistrationDetail enriches Registration with event and holder info.
type RegistrationDetail struct {
	Registration
	EventTitle string `db:"event_title" json:"event_title"`
	UserName   string `db:"user_name" json:"user_name"`
	UserEmail  string `db:"user_email" json:"user_email"`
}

// RegistrationFilter provides filters for listing registrations.
type RegistrationFilter struct {
	EventID   string
	UserID    string
	Status    RegistrationStatus
	CheckedIn *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CheckInResult is returned by the check-in validator. FirstCheckIn is false
// when the credential had already been scanned; a double scan is not an error.
type CheckInResult struct {
	Registration RegistrationDetail `json:"registration"`
	FirstCheckIn bool               `json:"first_check_in"`
}
