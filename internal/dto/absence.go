package dto

// RecordAbsenceRequest marks a rostered staff member absent for a date/session.
type RecordAbsenceRequest struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Session string `json:"session" validate:"required,oneof=MORNING EVENING"`
	RoomID  string `json:"roomId" validate:"required"`
	StaffID string `json:"staffId" validate:"required"`
	Reason  string `json:"reason" validate:"required"`
}

// RecordAbsenceResponse reports the updated counter and suspension outcome.
type RecordAbsenceResponse struct {
	StaffID             string `json:"staffId"`
	ConsecutiveAbsences int    `json:"consecutiveAbsences"`
	WasSuspended        bool   `json:"wasSuspended"`
}
