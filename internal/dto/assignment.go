package dto

// RunAssignmentRequest instructs the engine to staff the listed rooms for a date/session.
type RunAssignmentRequest struct {
	Date    string   `json:"date" validate:"required,datetime=2006-01-02"`
	Session string   `json:"session" validate:"required,oneof=MORNING EVENING"`
	RoomIDs []string `json:"roomIds" validate:"required,min=1,dive,required"`
}

// RoomRoster is the per-room outcome of an assignment run or snapshot.
type RoomRoster struct {
	RoomID       string   `json:"roomId"`
	RoomName     string   `json:"roomName,omitempty"`
	SupervisorID *string  `json:"supervisorId,omitempty"`
	ObserverIDs  []string `json:"observerIds"`
	Status       string   `json:"status"`
	Origin       string   `json:"origin"`
}

// DeficiencyNotice surfaces an unfilled required slot.
type DeficiencyNotice struct {
	RoomID     string `json:"roomId"`
	Deficiency string `json:"deficiency"`
	Missing    int    `json:"missing"`
}

// RunStats aggregates an assignment run.
type RunStats struct {
	RoomsTotal      int `json:"roomsTotal"`
	RoomsComplete   int `json:"roomsComplete"`
	RoomsPartial    int `json:"roomsPartial"`
	RoomsIncomplete int `json:"roomsIncomplete"`
	StaffPlaced     int `json:"staffPlaced"`
	SeatsUnfilled   int `json:"seatsUnfilled"`
}

// AssignmentRunResponse returns rosters, deficiency notices and aggregate statistics.
type AssignmentRunResponse struct {
	Date          string             `json:"date"`
	Session       string             `json:"session"`
	Rosters       []RoomRoster       `json:"rosters"`
	Notifications []DeficiencyNotice `json:"notifications"`
	Stats         RunStats           `json:"stats"`
}

// AssignmentQuery scopes snapshot, export and delete operations.
type AssignmentQuery struct {
	Date    string `form:"date" validate:"required,datetime=2006-01-02"`
	Session string `form:"session" validate:"required,oneof=MORNING EVENING"`
}

// AssignmentSnapshot is the stored roster set for a date/session.
type AssignmentSnapshot struct {
	Date    string       `json:"date"`
	Session string       `json:"session"`
	Rosters []RoomRoster `json:"rosters"`
}
