package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
)

type replacementStaffReader interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	ListActiveByRole(ctx context.Context, role models.StaffRole) ([]models.Staff, error)
	ListActiveByRoleAndRank(ctx context.Context, role models.StaffRole, rank models.StaffRank) ([]models.Staff, error)
}

type replacementAssignmentRepo interface {
	FindByRoom(ctx context.Context, date time.Time, session models.Session, roomID string) (*models.DailyAssignment, error)
	UpdateSlots(ctx context.Context, exec sqlx.ExtContext, assignment *models.DailyAssignment) error
}

type replacementHistoryRepo interface {
	HasWorkedInRoom(ctx context.Context, staffID, roomID string, asOf time.Time) (bool, error)
	HasPairedWithSupervisor(ctx context.Context, observerID, supervisorID string, asOf time.Time) (bool, error)
	ParticipationCounts(ctx context.Context, asOf time.Time) (map[string]int, error)
	ExistsForStaff(ctx context.Context, date time.Time, session models.Session, staffID string) (bool, error)
	ReplaceSlot(ctx context.Context, exec sqlx.ExtContext, oldStaffID string, entry models.HistoryEntry) (int64, error)
}

type replacementObserver interface {
	ObserveReplacement(action models.ReplacementAction)
}

// ReplacementService swaps roster seats after absences. Automatic mode picks the
// least-participating same-rank candidate; manual mode applies an operator's pick
// after re-validating it against the live eligible set. Both perform the same four
// writes atomically: audit row, roster slot, ledger replace, status recompute.
type ReplacementService struct {
	staff       replacementStaffReader
	rooms       roomReader
	assignments replacementAssignmentRepo
	history     replacementHistoryRepo
	records     absenceRecorder
	tx          txProvider
	snapshots   snapshotInvalidator
	metrics     replacementObserver
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReplacementService wires resolver dependencies.
func NewReplacementService(
	staff replacementStaffReader,
	rooms roomReader,
	assignments replacementAssignmentRepo,
	history replacementHistoryRepo,
	records absenceRecorder,
	tx txProvider,
	snapshots snapshotInvalidator,
	metrics replacementObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReplacementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplacementService{
		staff:       staff,
		rooms:       rooms,
		assignments: assignments,
		history:     history,
		records:     records,
		tx:          tx,
		snapshots:   snapshots,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// AutoReplace resolves a replacement automatically under the same-rank policy,
// preferring the least recent participation. An empty candidate list is a normal
// outcome, reported as NO_CANDIDATE_AVAILABLE with no writes and no rank fallback.
func (s *ReplacementService) AutoReplace(ctx context.Context, req dto.AutoReplaceRequest) (*dto.ReplacementResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid auto replace payload")
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	session := models.Session(req.Session)
	role := models.StaffRole(req.Role)

	original, err := s.staff.FindByID(ctx, req.OriginalStaffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "original staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load original staff member")
	}

	assignment, supervisorID, err := s.loadSlot(ctx, date, session, req.RoomID, req.OriginalStaffID, role)
	if err != nil {
		return nil, err
	}

	candidates, err := s.eligibleCandidates(ctx, date, session, req.RoomID, role, supervisorID, req.OriginalStaffID, &original.Rank)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoCandidate, fmt.Sprintf("no %s-rank candidate satisfies the constraints", original.Rank))
	}
	replacement := candidates[0]

	reason := req.Reason
	if reason == "" {
		reason = "automatic replacement"
	}
	status, err := s.applyReplacement(ctx, assignment, date, session, role, req.OriginalStaffID, replacement, models.ActionAutoReplacement, reason, supervisorID)
	if err != nil {
		return nil, err
	}
	s.afterReplacement(ctx, req.Date, req.Session, models.ActionAutoReplacement)

	return &dto.ReplacementResult{
		RoomID:             req.RoomID,
		OriginalStaffID:    req.OriginalStaffID,
		ReplacementStaffID: replacement.ID,
		Role:               req.Role,
		Action:             string(models.ActionAutoReplacement),
		RosterStatus:       string(status),
	}, nil
}

// ManualReplace applies an operator-selected replacement. Eligibility is re-validated
// at call time; a candidate who went ineligible between listing and confirming is
// rejected.
func (s *ReplacementService) ManualReplace(ctx context.Context, req dto.ManualReplaceRequest) (*dto.ReplacementResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual replace payload")
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	session := models.Session(req.Session)
	role := models.StaffRole(req.Role)

	replacement, err := s.staff.FindByID(ctx, req.ReplacementStaffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "replacement staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load replacement staff member")
	}
	if replacement.Role != role {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("staff member %s is not a %s", replacement.ID, role))
	}

	assignment, supervisorID, err := s.loadSlot(ctx, date, session, req.RoomID, req.OriginalStaffID, role)
	if err != nil {
		return nil, err
	}

	candidates, err := s.eligibleCandidates(ctx, date, session, req.RoomID, role, supervisorID, req.OriginalStaffID, nil)
	if err != nil {
		return nil, err
	}
	eligible := false
	for _, candidate := range candidates {
		if candidate.ID == req.ReplacementStaffID {
			eligible = true
			break
		}
	}
	if !eligible {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("staff member %s is no longer eligible for this slot", req.ReplacementStaffID))
	}

	status, err := s.applyReplacement(ctx, assignment, date, session, role, req.OriginalStaffID, *replacement, models.ActionManualReplacement, req.Reason, supervisorID)
	if err != nil {
		return nil, err
	}
	s.afterReplacement(ctx, req.Date, req.Session, models.ActionManualReplacement)

	return &dto.ReplacementResult{
		RoomID:             req.RoomID,
		OriginalStaffID:    req.OriginalStaffID,
		ReplacementStaffID: replacement.ID,
		Role:               req.Role,
		Action:             string(models.ActionManualReplacement),
		RosterStatus:       string(status),
	}, nil
}

// ListEligible returns the candidates an operator may pick from for a slot. It is the
// same filter the manual confirmation re-runs; rank parity is the automatic mode's
// policy and is not applied here.
func (s *ReplacementService) ListEligible(ctx context.Context, query dto.CandidateQuery) ([]models.Staff, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid candidate query")
	}
	date, err := time.ParseInLocation(dateLayout, query.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	session := models.Session(query.Session)
	role := models.StaffRole(query.Role)

	if _, err := s.rooms.FindByID(ctx, query.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load room")
	}

	supervisorID := query.PairedSupervisorID
	if supervisorID == "" && role == models.RoleObserver {
		// Default the pairing constraint to the room's current supervisor.
		if assignment, err := s.assignments.FindByRoom(ctx, date, session, query.RoomID); err == nil && assignment.HasSupervisor() {
			supervisorID = *assignment.SupervisorID
		}
	}

	return s.eligibleCandidates(ctx, date, session, query.RoomID, role, supervisorID, "", nil)
}

// loadSlot fetches the roster and verifies the target seat currently holds the
// original staff member, or is a missing placeholder for add-missing-seat calls.
func (s *ReplacementService) loadSlot(ctx context.Context, date time.Time, session models.Session, roomID, originalStaffID string, role models.StaffRole) (*models.DailyAssignment, string, error) {
	assignment, err := s.assignments.FindByRoom(ctx, date, session, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "no roster exists for this room, date and session")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load roster")
	}

	switch role {
	case models.RoleSupervisor:
		current := ""
		if assignment.SupervisorID != nil {
			current = *assignment.SupervisorID
		}
		if originalStaffID != "" && current != originalStaffID {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "the supervisor seat does not hold the given staff member")
		}
		if originalStaffID == "" && current != "" && current != models.MissingSlot {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "the supervisor seat is already filled")
		}
	case models.RoleObserver:
		target := originalStaffID
		if target == "" {
			target = models.MissingSlot
		}
		found := false
		for _, id := range assignment.ObserverIDs {
			if id == target {
				found = true
				break
			}
		}
		if !found {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "no observer seat holds the given staff member")
		}
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	supervisorID := ""
	if assignment.HasSupervisor() {
		supervisorID = *assignment.SupervisorID
	}
	if role == models.RoleSupervisor {
		// The outgoing supervisor is no pairing constraint for their own replacement.
		supervisorID = ""
	}
	return assignment, supervisorID, nil
}

// eligibleCandidates runs the shared replacement filter: role match, active, not the
// outgoing member, not serving elsewhere in the same date/session, not in the room
// inside the window, and (for observers with a live supervisor) not a repeated
// pairing. Results are ordered ascending by trailing participation, staff id as
// tie-break. rank, when non-nil, narrows to the automatic mode's same-rank policy.
func (s *ReplacementService) eligibleCandidates(
	ctx context.Context,
	date time.Time,
	session models.Session,
	roomID string,
	role models.StaffRole,
	pairedSupervisorID string,
	exclude string,
	rank *models.StaffRank,
) ([]models.Staff, error) {
	var pool []models.Staff
	var err error
	if rank != nil {
		pool, err = s.staff.ListActiveByRoleAndRank(ctx, role, *rank)
	} else {
		pool, err = s.staff.ListActiveByRole(ctx, role)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list candidates")
	}

	counts, err := s.history.ParticipationCounts(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load participation counts")
	}

	eligible := make([]models.Staff, 0, len(pool))
	for _, candidate := range pool {
		if exclude != "" && candidate.ID == exclude {
			continue
		}
		busy, err := s.history.ExistsForStaff(ctx, date, session, candidate.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check candidate availability")
		}
		if busy {
			continue
		}
		worked, err := s.history.HasWorkedInRoom(ctx, candidate.ID, roomID, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check room history")
		}
		if worked {
			continue
		}
		if role == models.RoleObserver && pairedSupervisorID != "" {
			paired, err := s.history.HasPairedWithSupervisor(ctx, candidate.ID, pairedSupervisorID, date)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check pairing history")
			}
			if paired {
				continue
			}
		}
		eligible = append(eligible, candidate)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		ci, cj := counts[eligible[i].ID], counts[eligible[j].ID]
		if ci == cj {
			return eligible[i].ID < eligible[j].ID
		}
		return ci < cj
	})
	return eligible, nil
}

// applyReplacement performs the four replacement writes in one transaction: audit row,
// roster slot (with an audit line in notes and origin demoted to manual), ledger
// replace-slot, and status recompute.
func (s *ReplacementService) applyReplacement(
	ctx context.Context,
	assignment *models.DailyAssignment,
	date time.Time,
	session models.Session,
	role models.StaffRole,
	originalStaffID string,
	replacement models.Staff,
	action models.ReplacementAction,
	reason string,
	pairedSupervisorID string,
) (models.AssignmentStatus, error) {
	room, err := s.rooms.FindByID(ctx, assignment.RoomID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load room")
	}

	switch role {
	case models.RoleSupervisor:
		id := replacement.ID
		assignment.SupervisorID = &id
	case models.RoleObserver:
		target := originalStaffID
		if target == "" {
			target = models.MissingSlot
		}
		for i, seat := range assignment.ObserverIDs {
			if seat == target {
				assignment.ObserverIDs[i] = replacement.ID
				break
			}
		}
	}

	filledSupervisors := 0
	if assignment.HasSupervisor() {
		filledSupervisors = 1
	}
	status := models.DeriveStatus(room.RequiredSupervisors, filledSupervisors, room.RequiredObservers, assignment.FilledObservers())
	assignment.Status = status
	// A replaced roster is manually managed from here on, whatever filled it first.
	assignment.Origin = models.OriginManual
	assignment.Notes = appendNote(assignment.Notes, fmt.Sprintf("%s: %s %s -> %s (%s): %s",
		time.Now().UTC().Format(time.RFC3339), role, displaySeat(originalStaffID), replacement.ID, action, reason))

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	replacementID := replacement.ID
	record := &models.AbsenceReplacementRecord{
		Date:               date,
		Session:            session,
		RoomID:             assignment.RoomID,
		OriginalStaffID:    originalStaffID,
		ReplacementStaffID: &replacementID,
		Action:             action,
		Reason:             reason,
	}
	if err = s.records.Insert(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to append replacement record")
		return "", err
	}

	if err = s.assignments.UpdateSlots(ctx, tx, assignment); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update roster slot")
		return "", err
	}

	entry := models.HistoryEntry{
		Date:    date,
		Session: session,
		StaffID: replacement.ID,
		RoomID:  assignment.RoomID,
		Role:    role,
	}
	if role == models.RoleObserver && pairedSupervisorID != "" {
		paired := pairedSupervisorID
		entry.PairedSupervisorID = &paired
	}
	var removed int64
	if removed, err = s.history.ReplaceSlot(ctx, tx, originalStaffID, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to replace ledger row")
		return "", err
	}
	if originalStaffID != "" && removed != 1 {
		// One current ledger row must exist per (date, session, staff); anything else
		// means the window queries were already poisoned.
		s.logger.Warn("ledger replace removed an unexpected row count",
			zap.String("staff_id", originalStaffID),
			zap.Int64("removed", removed),
		)
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to commit replacement")
		return "", err
	}
	return status, nil
}

func (s *ReplacementService) afterReplacement(ctx context.Context, date, session string, action models.ReplacementAction) {
	if s.snapshots != nil {
		s.snapshots.InvalidateSnapshot(ctx, date, session)
	}
	if s.metrics != nil {
		s.metrics.ObserveReplacement(action)
	}
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

func displaySeat(staffID string) string {
	if staffID == "" {
		return models.MissingSlot
	}
	return staffID
}
