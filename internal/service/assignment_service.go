package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
	"github.com/invigilo/proctor-api/pkg/export"
)

const dateLayout = "2006-01-02"

type roomReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type staffLister interface {
	ListActiveByRole(ctx context.Context, role models.StaffRole) ([]models.Staff, error)
}

type assignmentRepo interface {
	ExistsAny(ctx context.Context, date time.Time, session models.Session, roomIDs []string) (bool, error)
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, rosters []models.DailyAssignment) error
	ListByDateSession(ctx context.Context, date time.Time, session models.Session) ([]models.DailyAssignment, error)
	DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) (int64, error)
}

type historyWriter interface {
	Window(ctx context.Context, asOf time.Time) ([]models.HistoryEntry, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.HistoryEntry) error
	DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) error
}

type notificationRepo interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, notifications []models.Notification) error
	DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) error
}

type absenceReader interface {
	AbsentStaffIDs(ctx context.Context, date time.Time) ([]string, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string)
}

type runObserver interface {
	ObserveAssignmentRun(stats dto.RunStats)
}

// AssignmentConfig tunes engine behaviour.
type AssignmentConfig struct {
	// CollegeRankBonus is the fixed priority bonus college employees receive; it must
	// outrank any realistic participation count.
	CollegeRankBonus int
	SnapshotCacheTTL time.Duration
}

// AssignmentService is the greedy roster engine: it fills supervisor and observer
// seats room by room from priority-ordered pools, subject to the rolling
// non-repetition constraints, and persists each run as one atomic distribution.
type AssignmentService struct {
	rooms         roomReader
	staff         staffLister
	assignments   assignmentRepo
	history       historyWriter
	notifications notificationRepo
	absences      absenceReader
	tx            txProvider
	cache         snapshotCache
	metrics       runObserver
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           AssignmentConfig
}

// NewAssignmentService wires engine dependencies.
func NewAssignmentService(
	rooms roomReader,
	staff staffLister,
	assignments assignmentRepo,
	history historyWriter,
	notifications notificationRepo,
	absences absenceReader,
	tx txProvider,
	cache snapshotCache,
	metrics runObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AssignmentConfig,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CollegeRankBonus <= 0 {
		cfg.CollegeRankBonus = 1000
	}
	if cfg.SnapshotCacheTTL <= 0 {
		cfg.SnapshotCacheTTL = 5 * time.Minute
	}
	return &AssignmentService{
		rooms:         rooms,
		staff:         staff,
		assignments:   assignments,
		history:       history,
		notifications: notifications,
		absences:      absences,
		tx:            tx,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
	}
}

// Run executes one assignment run over the rooms in the caller-supplied order. The
// whole run is a single transaction: every roster, ledger row and notification commits
// together or not at all.
func (s *AssignmentService) Run(ctx context.Context, req dto.RunAssignmentRequest) (*dto.AssignmentRunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment run payload")
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	session := models.Session(req.Session)

	rooms, err := s.loadRooms(ctx, req.RoomIDs)
	if err != nil {
		return nil, err
	}

	exists, err := s.assignments.ExistsAny(ctx, date, session, req.RoomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check existing assignments")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an assignment already exists for this date, session and room set")
	}

	window, err := s.loadHistoryWindow(ctx, date)
	if err != nil {
		return nil, err
	}
	supervisors, err := s.buildPool(ctx, models.RoleSupervisor, date, window)
	if err != nil {
		return nil, err
	}
	observers, err := s.buildPool(ctx, models.RoleObserver, date, window)
	if err != nil {
		return nil, err
	}

	outcome := s.fillRooms(rooms, date, session, window, supervisors, observers)

	if err := s.persistRun(ctx, outcome); err != nil {
		return nil, err
	}
	s.invalidateSnapshot(ctx, req.Date, req.Session)

	resp := &dto.AssignmentRunResponse{
		Date:          req.Date,
		Session:       req.Session,
		Rosters:       outcome.rosterViews(),
		Notifications: outcome.notices,
		Stats:         outcome.stats(),
	}
	if s.metrics != nil {
		s.metrics.ObserveAssignmentRun(resp.Stats)
	}
	s.logger.Info("assignment run committed",
		zap.String("date", req.Date),
		zap.String("session", req.Session),
		zap.Int("rooms", resp.Stats.RoomsTotal),
		zap.Int("staff_placed", resp.Stats.StaffPlaced),
	)
	return resp, nil
}

func (s *AssignmentService) loadRooms(ctx context.Context, roomIDs []string) ([]models.Room, error) {
	rooms, err := s.rooms.ListByIDs(ctx, roomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load rooms")
	}
	byID := make(map[string]models.Room, len(rooms))
	for _, room := range rooms {
		byID[room.ID] = room
	}
	ordered := make([]models.Room, 0, len(roomIDs))
	for _, id := range roomIDs {
		room, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("room %s not found", id))
		}
		if !room.Available {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s is not available", id))
		}
		if room.RequiredSupervisors != 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s reports %d required supervisors; exactly one is supported", id, room.RequiredSupervisors))
		}
		if room.RequiredObservers < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s reports no required observers", id))
		}
		ordered = append(ordered, room)
	}
	return ordered, nil
}

func (s *AssignmentService) loadHistoryWindow(ctx context.Context, date time.Time) (*historyWindow, error) {
	entries, err := s.history.Window(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load history window")
	}
	return newHistoryWindow(entries), nil
}

// buildPool produces the priority-ordered eligibility queue for one role: active staff
// minus same-day absentees, college employees first, least recent participation first,
// staff id as the final deterministic tie-break.
func (s *AssignmentService) buildPool(ctx context.Context, role models.StaffRole, date time.Time, window *historyWindow) (*candidateQueue, error) {
	staff, err := s.staff.ListActiveByRole(ctx, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list eligible staff")
	}
	absentIDs, err := s.absences.AbsentStaffIDs(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list absent staff")
	}
	absent := make(map[string]struct{}, len(absentIDs))
	for _, id := range absentIDs {
		absent[id] = struct{}{}
	}

	queue := &candidateQueue{}
	for _, member := range staff {
		if _, isAbsent := absent[member.ID]; isAbsent {
			continue
		}
		score := -window.participation(member.ID)
		if member.Rank == models.RankCollegeEmployee {
			score += s.cfg.CollegeRankBonus
		}
		queue.items = append(queue.items, candidate{staff: member, score: score})
	}
	sort.SliceStable(queue.items, func(i, j int) bool {
		if queue.items[i].score == queue.items[j].score {
			return queue.items[i].staff.ID < queue.items[j].staff.ID
		}
		return queue.items[i].score > queue.items[j].score
	})
	return queue, nil
}

// runOutcome accumulates the write set of one engine run.
type runOutcome struct {
	date          time.Time
	session       models.Session
	rooms         []models.Room
	assignments   []models.DailyAssignment
	ledgerEntries []models.HistoryEntry
	notifications []models.Notification
	notices       []dto.DeficiencyNotice
}

// fillRooms is the greedy first-fit loop: rooms in caller order, candidates in strict
// priority order, with a used-set threaded across rooms so nobody serves twice in one
// run. It is intentionally not an optimizer; downstream fairness expectations are
// tuned around the greedy behaviour.
func (s *AssignmentService) fillRooms(
	rooms []models.Room,
	date time.Time,
	session models.Session,
	window *historyWindow,
	supervisors, observers *candidateQueue,
) *runOutcome {
	outcome := &runOutcome{date: date, session: session, rooms: rooms}
	used := make(map[string]struct{})

	for _, room := range rooms {
		var supervisorID *string
		if chosen, ok := supervisors.take(func(c models.Staff) bool {
			return canPlace(c.ID, room.ID, window, used, "")
		}); ok {
			id := chosen.ID
			supervisorID = &id
			used[id] = struct{}{}
			outcome.ledgerEntries = append(outcome.ledgerEntries, models.HistoryEntry{
				Date: date, Session: session, StaffID: id, RoomID: room.ID, Role: models.RoleSupervisor,
			})
		} else {
			outcome.notifications = append(outcome.notifications, models.Notification{
				Date: date, Session: session, RoomID: room.ID, Deficiency: models.DeficiencySupervisor,
			})
			outcome.notices = append(outcome.notices, dto.DeficiencyNotice{
				RoomID: room.ID, Deficiency: string(models.DeficiencySupervisor), Missing: 1,
			})
		}

		pairedSupervisor := ""
		if supervisorID != nil {
			pairedSupervisor = *supervisorID
		}

		observerIDs := make([]string, 0, room.RequiredObservers)
		missingObservers := 0
		for seat := 0; seat < room.RequiredObservers; seat++ {
			chosen, ok := observers.take(func(c models.Staff) bool {
				return canPlace(c.ID, room.ID, window, used, pairedSupervisor)
			})
			if !ok {
				observerIDs = append(observerIDs, models.MissingSlot)
				missingObservers++
				continue
			}
			observerIDs = append(observerIDs, chosen.ID)
			used[chosen.ID] = struct{}{}
			entry := models.HistoryEntry{
				Date: date, Session: session, StaffID: chosen.ID, RoomID: room.ID, Role: models.RoleObserver,
			}
			if pairedSupervisor != "" {
				paired := pairedSupervisor
				entry.PairedSupervisorID = &paired
			}
			outcome.ledgerEntries = append(outcome.ledgerEntries, entry)
		}
		if missingObservers > 0 {
			outcome.notifications = append(outcome.notifications, models.Notification{
				Date: date, Session: session, RoomID: room.ID, Deficiency: models.DeficiencyObserver,
			})
			outcome.notices = append(outcome.notices, dto.DeficiencyNotice{
				RoomID: room.ID, Deficiency: string(models.DeficiencyObserver), Missing: missingObservers,
			})
		}

		filledSupervisors := 0
		if supervisorID != nil {
			filledSupervisors = 1
		}
		status := models.DeriveStatus(room.RequiredSupervisors, filledSupervisors, room.RequiredObservers, room.RequiredObservers-missingObservers)
		outcome.assignments = append(outcome.assignments, models.DailyAssignment{
			Date:         date,
			Session:      session,
			RoomID:       room.ID,
			SupervisorID: supervisorID,
			ObserverIDs:  observerIDs,
			Status:       status,
			Origin:       models.OriginAutomatic,
		})
	}
	return outcome
}

func (s *AssignmentService) persistRun(ctx context.Context, outcome *runOutcome) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.assignments.BulkCreate(ctx, tx, outcome.assignments); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to persist rosters")
		return err
	}
	if err = s.history.InsertBatch(ctx, tx, outcome.ledgerEntries); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to persist ledger rows")
		return err
	}
	if len(outcome.notifications) > 0 {
		if err = s.notifications.InsertBatch(ctx, tx, outcome.notifications); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to persist notifications")
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to commit assignment run")
		return err
	}
	return nil
}

// Snapshot returns the stored distribution for a date/session, via the cache when warm.
func (s *AssignmentService) Snapshot(ctx context.Context, query dto.AssignmentQuery) (*dto.AssignmentSnapshot, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid snapshot query")
	}
	date, err := time.ParseInLocation(dateLayout, query.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	session := models.Session(query.Session)

	key := snapshotKey(query.Date, query.Session)
	if s.cache != nil {
		var cached dto.AssignmentSnapshot
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	assignments, err := s.assignments.ListByDateSession(ctx, date, session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list assignments")
	}
	if len(assignments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no assignment exists for this date and session")
	}

	snapshot := &dto.AssignmentSnapshot{Date: query.Date, Session: query.Session}
	for _, assignment := range assignments {
		snapshot.Rosters = append(snapshot.Rosters, dto.RoomRoster{
			RoomID:       assignment.RoomID,
			SupervisorID: assignment.SupervisorID,
			ObserverIDs:  assignment.ObserverIDs,
			Status:       string(assignment.Status),
			Origin:       string(assignment.Origin),
		})
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snapshot, s.cfg.SnapshotCacheTTL); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.Error(err))
		}
	}
	return snapshot, nil
}

// ExportSheet builds the printable roster sheet for a date/session, with room names
// resolved from the directory.
func (s *AssignmentService) ExportSheet(ctx context.Context, query dto.AssignmentQuery) (*export.RosterSheet, error) {
	snapshot, err := s.Snapshot(ctx, query)
	if err != nil {
		return nil, err
	}

	roomIDs := make([]string, 0, len(snapshot.Rosters))
	for _, roster := range snapshot.Rosters {
		roomIDs = append(roomIDs, roster.RoomID)
	}
	rooms, err := s.rooms.ListByIDs(ctx, roomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load rooms")
	}
	names := make(map[string]string, len(rooms))
	for _, room := range rooms {
		names[room.ID] = room.Name
	}

	sheet := &export.RosterSheet{Date: snapshot.Date, Session: snapshot.Session}
	for _, roster := range snapshot.Rosters {
		supervisor := ""
		if roster.SupervisorID != nil {
			supervisor = *roster.SupervisorID
		}
		sheet.Rows = append(sheet.Rows, export.RosterRow{
			RoomID:     roster.RoomID,
			RoomName:   names[roster.RoomID],
			Supervisor: supervisor,
			Observers:  roster.ObserverIDs,
			Status:     roster.Status,
			Origin:     roster.Origin,
		})
	}
	return sheet, nil
}

// Delete removes one distribution as a unit: rosters, ledger rows and notifications.
func (s *AssignmentService) Delete(ctx context.Context, query dto.AssignmentQuery) error {
	if err := s.validator.Struct(query); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid delete query")
	}
	date, err := time.ParseInLocation(dateLayout, query.Date, time.UTC)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	session := models.Session(query.Session)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var removed int64
	if removed, err = s.assignments.DeleteByDateSession(ctx, tx, date, session); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete rosters")
		return err
	}
	if removed == 0 {
		err = appErrors.Clone(appErrors.ErrNotFound, "no assignment exists for this date and session")
		return err
	}
	if err = s.history.DeleteByDateSession(ctx, tx, date, session); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete ledger rows")
		return err
	}
	if err = s.notifications.DeleteByDateSession(ctx, tx, date, session); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete notifications")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to commit distribution delete")
		return err
	}

	s.invalidateSnapshot(ctx, query.Date, query.Session)
	s.logger.Info("distribution deleted", zap.String("date", query.Date), zap.String("session", query.Session), zap.Int64("rooms", removed))
	return nil
}

// InvalidateSnapshot drops the cached roster for a date/session; replacement and
// absence flows call it after mutating the distribution.
func (s *AssignmentService) InvalidateSnapshot(ctx context.Context, date, session string) {
	s.invalidateSnapshot(ctx, date, session)
}

func (s *AssignmentService) invalidateSnapshot(ctx context.Context, date, session string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, snapshotKey(date, session))
}

func snapshotKey(date, session string) string {
	return fmt.Sprintf("assignments:%s:%s", date, session)
}

func (o *runOutcome) rosterViews() []dto.RoomRoster {
	names := make(map[string]string, len(o.rooms))
	for _, room := range o.rooms {
		names[room.ID] = room.Name
	}
	views := make([]dto.RoomRoster, 0, len(o.assignments))
	for _, assignment := range o.assignments {
		views = append(views, dto.RoomRoster{
			RoomID:       assignment.RoomID,
			RoomName:     names[assignment.RoomID],
			SupervisorID: assignment.SupervisorID,
			ObserverIDs:  assignment.ObserverIDs,
			Status:       string(assignment.Status),
			Origin:       string(assignment.Origin),
		})
	}
	return views
}

func (o *runOutcome) stats() dto.RunStats {
	stats := dto.RunStats{RoomsTotal: len(o.assignments), StaffPlaced: len(o.ledgerEntries)}
	for _, assignment := range o.assignments {
		switch assignment.Status {
		case models.AssignmentComplete:
			stats.RoomsComplete++
		case models.AssignmentPartial:
			stats.RoomsPartial++
		case models.AssignmentIncomplete:
			stats.RoomsIncomplete++
		}
	}
	for _, notice := range o.notices {
		stats.SeatsUnfilled += notice.Missing
	}
	return stats
}

// --- Eligibility queue ---

type candidate struct {
	staff models.Staff
	score int
}

// candidateQueue is consumed in strict priority order; an accepted candidate is
// removed and never reused within the run, a rejected one stays available for later
// rooms.
type candidateQueue struct {
	items []candidate
}

func (q *candidateQueue) take(accept func(models.Staff) bool) (models.Staff, bool) {
	for i, item := range q.items {
		if accept(item.staff) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item.staff, true
		}
	}
	return models.Staff{}, false
}

// --- In-memory history window ---

// historyWindow answers the rolling-window constraint queries in memory during a run,
// loaded once per run rather than once per seat.
type historyWindow struct {
	roomsWorked map[string]map[string]struct{}
	pairings    map[string]map[string]struct{}
	counts      map[string]int
}

func newHistoryWindow(entries []models.HistoryEntry) *historyWindow {
	w := &historyWindow{
		roomsWorked: make(map[string]map[string]struct{}),
		pairings:    make(map[string]map[string]struct{}),
		counts:      make(map[string]int),
	}
	for _, entry := range entries {
		if w.roomsWorked[entry.StaffID] == nil {
			w.roomsWorked[entry.StaffID] = make(map[string]struct{})
		}
		w.roomsWorked[entry.StaffID][entry.RoomID] = struct{}{}
		w.counts[entry.StaffID]++
		if entry.PairedSupervisorID != nil && *entry.PairedSupervisorID != "" {
			if w.pairings[entry.StaffID] == nil {
				w.pairings[entry.StaffID] = make(map[string]struct{})
			}
			w.pairings[entry.StaffID][*entry.PairedSupervisorID] = struct{}{}
		}
	}
	return w
}

func (w *historyWindow) workedInRoom(staffID, roomID string) bool {
	rooms, ok := w.roomsWorked[staffID]
	if !ok {
		return false
	}
	_, worked := rooms[roomID]
	return worked
}

func (w *historyWindow) pairedWith(observerID, supervisorID string) bool {
	supervisors, ok := w.pairings[observerID]
	if !ok {
		return false
	}
	_, paired := supervisors[supervisorID]
	return paired
}

func (w *historyWindow) participation(staffID string) int {
	return w.counts[staffID]
}

// canPlace is the constraint predicate shared by both fill passes: reject staff
// already used in this run, staff who served in the room inside the window, and
// observers repeating a pairing with the room's supervisor.
func canPlace(staffID, roomID string, window *historyWindow, used map[string]struct{}, pairedSupervisorID string) bool {
	if _, taken := used[staffID]; taken {
		return false
	}
	if window.workedInRoom(staffID, roomID) {
		return false
	}
	if pairedSupervisorID != "" && window.pairedWith(staffID, pairedSupervisorID) {
		return false
	}
	return true
}
