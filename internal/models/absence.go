package models

import "time"

// ReplacementAction constants label rows in the absence/replacement audit log.
type ReplacementAction string

const (
	ActionAbsence           ReplacementAction = "ABSENCE"
	ActionAutoReplacement   ReplacementAction = "AUTO_REPLACEMENT"
	ActionManualReplacement ReplacementAction = "MANUAL_REPLACEMENT"
)

// AbsenceReplacementRecord is an append-only audit row; it is never mutated after
// creation and is consumed by reporting outside this service.
type AbsenceReplacementRecord struct {
	ID                 string            `db:"id" json:"id"`
	Date               time.Time         `db:"date" json:"date"`
	Session            Session           `db:"session" json:"session"`
	RoomID             string            `db:"room_id" json:"room_id"`
	OriginalStaffID    string            `db:"original_staff_id" json:"original_staff_id"`
	ReplacementStaffID *string           `db:"replacement_staff_id" json:"replacement_staff_id,omitempty"`
	Action             ReplacementAction `db:"action" json:"action"`
	Reason             string            `db:"reason" json:"reason"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
}
