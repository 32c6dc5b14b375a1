package models

import "time"

// HistoryEntry is one row of the rolling participation ledger. Exactly one current row
// exists per (date, session, staff) tuple; replacements retire the old row and insert a
// new one in the same transaction.
type HistoryEntry struct {
	ID                 string    `db:"id" json:"id"`
	Date               time.Time `db:"date" json:"date"`
	Session            Session   `db:"session" json:"session"`
	StaffID            string    `db:"staff_id" json:"staff_id"`
	RoomID             string    `db:"room_id" json:"room_id"`
	Role               StaffRole `db:"role" json:"role"`
	PairedSupervisorID *string   `db:"paired_supervisor_id" json:"paired_supervisor_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}
