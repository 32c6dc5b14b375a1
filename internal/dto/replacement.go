package dto

// AutoReplaceRequest asks the resolver to pick a rank-matched replacement.
type AutoReplaceRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Session         string `json:"session" validate:"required,oneof=MORNING EVENING"`
	RoomID          string `json:"roomId" validate:"required"`
	OriginalStaffID string `json:"originalStaffId" validate:"required"`
	Role            string `json:"role" validate:"required,oneof=SUPERVISOR OBSERVER"`
	Reason          string `json:"reason"`
}

// ManualReplaceRequest applies an operator-selected replacement. OriginalStaffID may be
// empty to fill a missing seat.
type ManualReplaceRequest struct {
	Date               string `json:"date" validate:"required,datetime=2006-01-02"`
	Session            string `json:"session" validate:"required,oneof=MORNING EVENING"`
	RoomID             string `json:"roomId" validate:"required"`
	OriginalStaffID    string `json:"originalStaffId"`
	ReplacementStaffID string `json:"replacementStaffId" validate:"required"`
	Role               string `json:"role" validate:"required,oneof=SUPERVISOR OBSERVER"`
	Reason             string `json:"reason" validate:"required"`
}

// ReplacementResult describes the applied slot change.
type ReplacementResult struct {
	RoomID             string `json:"roomId"`
	OriginalStaffID    string `json:"originalStaffId,omitempty"`
	ReplacementStaffID string `json:"replacementStaffId"`
	Role               string `json:"role"`
	Action             string `json:"action"`
	RosterStatus       string `json:"rosterStatus"`
}

// CandidateQuery scopes the eligible-replacement listing.
type CandidateQuery struct {
	Date               string `form:"date" validate:"required,datetime=2006-01-02"`
	Session            string `form:"session" validate:"required,oneof=MORNING EVENING"`
	RoomID             string `form:"roomId" validate:"required"`
	Role               string `form:"role" validate:"required,oneof=SUPERVISOR OBSERVER"`
	PairedSupervisorID string `form:"pairedSupervisorId"`
}
