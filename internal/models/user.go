package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStaff   UserRole = "STAFF"
	RoleStudent UserRole = "STUDENT"
)

// StudyLevel is the academic level used by eligibility gating.
type StudyLevel string

const (
	LevelBachelor  StudyLevel = "BACHELOR"
	LevelMaster    StudyLevel = "MASTER"
	LevelDoctorate StudyLevel = "DOCTORATE"
)

// StudyProgram is the programme of study used by eligibility gating.
// Programmes are institution-defined, so the type carries no fixed set.
type StudyProgram string

// User represents an application user stored in the users table.
// StudyLevel and StudyProgram are optional; registrants without them fail
// any eligibility axis an event restricts.
type User struct {
	ID           string        `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	PasswordHash string        `db:"password_hash" json:"-"`
	FullName     string        `db:"full_name" json:"full_name"`
	Role         UserRole      `db:"role" json:"role"`
	StudyLevel   *StudyLevel   `db:"study_level" json:"study_level,omitempty"`
	StudyProgram *StudyProgram `db:"study_program" json:"study_program,omitempty"`
	Active       bool          `db:"active" json:"active"`
	LastLogin    *time.Time    `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
