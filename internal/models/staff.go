package models

import "time"

// StaffRole distinguishes the two proctor types.
type StaffRole string

const (
	RoleSupervisor StaffRole = "SUPERVISOR"
	RoleObserver   StaffRole = "OBSERVER"
)

// Valid returns true when the role is a supported value.
func (r StaffRole) Valid() bool {
	switch r {
	case RoleSupervisor, RoleObserver:
		return true
	default:
		return false
	}
}

// StaffRank affects priority ordering and replacement matching.
type StaffRank string

const (
	RankCollegeEmployee  StaffRank = "COLLEGE_EMPLOYEE"
	RankExternalEmployee StaffRank = "EXTERNAL_EMPLOYEE"
)

// Valid returns true when the rank is a supported value.
func (r StaffRank) Valid() bool {
	switch r {
	case RankCollegeEmployee, RankExternalEmployee:
		return true
	default:
		return false
	}
}

// StaffStatus is the lifecycle state of a staff member.
type StaffStatus string

const (
	StaffActive    StaffStatus = "ACTIVE"
	StaffSuspended StaffStatus = "SUSPENDED"
	StaffDeleted   StaffStatus = "DELETED"
)

// Staff represents a proctor in the staff directory.
type Staff struct {
	ID                     string      `db:"id" json:"id"`
	FullName               string      `db:"full_name" json:"full_name"`
	Phone                  *string     `db:"phone" json:"phone,omitempty"`
	Specialization         *string     `db:"specialization" json:"specialization,omitempty"`
	Role                   StaffRole   `db:"role" json:"role"`
	Rank                   StaffRank   `db:"rank" json:"rank"`
	Status                 StaffStatus `db:"status" json:"status"`
	ConsecutiveAbsenceDays int         `db:"consecutive_absence_days" json:"consecutive_absence_days"`
	LastAbsenceDate        *time.Time  `db:"last_absence_date" json:"last_absence_date,omitempty"`
	CreatedAt              time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time   `db:"updated_at" json:"updated_at"`
}
