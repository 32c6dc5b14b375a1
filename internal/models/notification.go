package models

import "time"

// Deficiency names the unfilled slot kind behind a notification.
type Deficiency string

const (
	DeficiencySupervisor Deficiency = "SUPERVISOR"
	DeficiencyObserver   Deficiency = "OBSERVER"
)

// Notification flags an understaffed room for later operator action.
type Notification struct {
	ID         string     `db:"id" json:"id"`
	Date       time.Time  `db:"date" json:"date"`
	Session    Session    `db:"session" json:"session"`
	RoomID     string     `db:"room_id" json:"room_id"`
	Deficiency Deficiency `db:"deficiency" json:"deficiency"`
	Resolved   bool       `db:"resolved" json:"resolved"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
