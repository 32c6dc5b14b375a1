package models

import (
	"time"

	"github.com/lib/pq"
)

// Session is a half-day exam period; paired with a date it forms the scheduling unit.
type Session string

const (
	SessionMorning Session = "MORNING"
	SessionEvening Session = "EVENING"
)

// Valid returns true when the session is a supported value.
func (s Session) Valid() bool {
	switch s {
	case SessionMorning, SessionEvening:
		return true
	default:
		return false
	}
}

// AssignmentStatus reflects how completely a room roster is staffed.
type AssignmentStatus string

const (
	AssignmentComplete   AssignmentStatus = "COMPLETE"
	AssignmentPartial    AssignmentStatus = "PARTIAL"
	AssignmentIncomplete AssignmentStatus = "INCOMPLETE"
)

// AssignmentOrigin records whether a roster is still machine-managed.
type AssignmentOrigin string

const (
	OriginAutomatic AssignmentOrigin = "AUTOMATIC"
	OriginManual    AssignmentOrigin = "MANUAL"
)

// MissingSlot is the placeholder stored for an observer seat that could not be filled.
const MissingSlot = "missing"

// DailyAssignment is a room roster for one date and session.
type DailyAssignment struct {
	ID           string           `db:"id" json:"id"`
	Date         time.Time        `db:"date" json:"date"`
	Session      Session          `db:"session" json:"session"`
	RoomID       string           `db:"room_id" json:"room_id"`
	SupervisorID *string          `db:"supervisor_id" json:"supervisor_id,omitempty"`
	ObserverIDs  pq.StringArray   `db:"observer_ids" json:"observer_ids"`
	Status       AssignmentStatus `db:"status" json:"status"`
	Origin       AssignmentOrigin `db:"origin" json:"origin"`
	Notes        string           `db:"notes" json:"notes"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// FilledObservers counts observer seats holding a real staff id.
func (a *DailyAssignment) FilledObservers() int {
	count := 0
	for _, id := range a.ObserverIDs {
		if id != "" && id != MissingSlot {
			count++
		}
	}
	return count
}

// HasSupervisor reports whether the supervisor seat is filled.
func (a *DailyAssignment) HasSupervisor() bool {
	return a.SupervisorID != nil && *a.SupervisorID != "" && *a.SupervisorID != MissingSlot
}

// DeriveStatus is the single status derivation used everywhere a roster status is
// computed. Complete means every seat is filled; incomplete means no supervisor and no
// observer could be placed at all; anything in between is partial.
func DeriveStatus(requiredSupervisors, filledSupervisors, requiredObservers, filledObservers int) AssignmentStatus {
	if filledSupervisors >= requiredSupervisors && filledObservers >= requiredObservers {
		return AssignmentComplete
	}
	if filledSupervisors == 0 && filledObservers == 0 {
		return AssignmentIncomplete
	}
	return AssignmentPartial
}
