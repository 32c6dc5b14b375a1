package dto

import "github.com/invigilo/proctor-api/internal/models"

// StaffDetail pairs a staff member with their workload over the rolling window, so
// operators can see at a glance how loaded someone already is.
type StaffDetail struct {
	models.Staff
	ParticipationInWindow int `json:"participationInWindow"`
}
