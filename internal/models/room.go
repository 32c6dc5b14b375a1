package models

// Room describes an exam room and its proctoring requirements.
type Room struct {
	ID                  string `db:"id" json:"id"`
	Name                string `db:"name" json:"name"`
	Capacity            int    `db:"capacity" json:"capacity"`
	RequiredSupervisors int    `db:"required_supervisors" json:"required_supervisors"`
	RequiredObservers   int    `db:"required_observers" json:"required_observers"`
	Available           bool   `db:"available" json:"available"`
}
