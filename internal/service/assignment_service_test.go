package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
)

func TestAssignmentServiceRunFillsRoomsInPriorityOrder(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{
			mockRoom("room-1", 2),
			mockRoom("room-2", 1),
		},
		supervisors: []models.Staff{
			mockStaff("sup-ext", models.RoleSupervisor, models.RankExternalEmployee),
			mockStaff("sup-col", models.RoleSupervisor, models.RankCollegeEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankExternalEmployee),
			mockStaff("obs-2", models.RoleObserver, models.RankExternalEmployee),
			mockStaff("obs-3", models.RoleObserver, models.RankCollegeEmployee),
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1", "room-2"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Rosters, 2)

	// College employees outrank externals regardless of participation.
	first := resp.Rosters[0]
	require.NotNil(t, first.SupervisorID)
	assert.Equal(t, "sup-col", *first.SupervisorID)
	assert.Equal(t, []string{"obs-3", "obs-1"}, first.ObserverIDs)
	assert.Equal(t, string(models.AssignmentComplete), first.Status)

	second := resp.Rosters[1]
	require.NotNil(t, second.SupervisorID)
	assert.Equal(t, "sup-ext", *second.SupervisorID)
	assert.Equal(t, []string{"obs-2"}, second.ObserverIDs)

	assert.Equal(t, 5, resp.Stats.StaffPlaced)
	assert.Equal(t, 2, resp.Stats.RoomsComplete)
	assert.Empty(t, resp.Notifications)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAssignmentServiceRunBreaksTiesByStaffID(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{mockRoom("room-1", 1)},
		supervisors: []models.Staff{
			mockStaff("sup-b", models.RoleSupervisor, models.RankExternalEmployee),
			mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankExternalEmployee),
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sup-a", *resp.Rosters[0].SupervisorID)
}

func TestAssignmentServiceRunPrefersLeastParticipation(t *testing.T) {
	window := []models.HistoryEntry{
		{Date: day(-5), Session: models.SessionMorning, StaffID: "sup-a", RoomID: "room-9", Role: models.RoleSupervisor},
		{Date: day(-4), Session: models.SessionMorning, StaffID: "sup-a", RoomID: "room-8", Role: models.RoleSupervisor},
		{Date: day(-3), Session: models.SessionMorning, StaffID: "sup-b", RoomID: "room-7", Role: models.RoleSupervisor},
	}
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{mockRoom("room-1", 1)},
		supervisors: []models.Staff{
			mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee),
			mockStaff("sup-b", models.RoleSupervisor, models.RankExternalEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankExternalEmployee),
		},
		window: window,
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sup-b", *resp.Rosters[0].SupervisorID)
}

func TestAssignmentServiceRunSkipsRoomRepeatWithinWindow(t *testing.T) {
	window := []models.HistoryEntry{
		{Date: day(-10), Session: models.SessionMorning, StaffID: "sup-a", RoomID: "room-1", Role: models.RoleSupervisor},
	}
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{mockRoom("room-1", 1)},
		supervisors: []models.Staff{
			mockStaff("sup-a", models.RoleSupervisor, models.RankCollegeEmployee),
			mockStaff("sup-b", models.RoleSupervisor, models.RankExternalEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankExternalEmployee),
		},
		window: window,
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.NoError(t, err)
	// sup-a outranks sup-b but worked room-1 inside the window.
	assert.Equal(t, "sup-b", *resp.Rosters[0].SupervisorID)
}

func TestAssignmentServiceRunSkipsRepeatedPairing(t *testing.T) {
	supervisor := "sup-a"
	window := []models.HistoryEntry{
		{Date: day(-7), Session: models.SessionMorning, StaffID: "obs-1", RoomID: "room-9", Role: models.RoleObserver, PairedSupervisorID: &supervisor},
	}
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{mockRoom("room-1", 1)},
		supervisors: []models.Staff{
			mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankCollegeEmployee),
			mockStaff("obs-2", models.RoleObserver, models.RankExternalEmployee),
		},
		window: window,
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"obs-2"}, resp.Rosters[0].ObserverIDs)
}

func TestAssignmentServiceRunNeverPlacesSameStaffTwice(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{
			mockRoom("room-1", 1),
			mockRoom("room-2", 1),
		},
		supervisors: []models.Staff{
			mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankExternalEmployee),
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1", "room-2"},
	})
	require.NoError(t, err)

	// The single supervisor and observer land in room-1; room-2 is left empty.
	assert.Equal(t, string(models.AssignmentComplete), resp.Rosters[0].Status)
	assert.Nil(t, resp.Rosters[1].SupervisorID)
	assert.Equal(t, []string{models.MissingSlot}, resp.Rosters[1].ObserverIDs)
	assert.Equal(t, string(models.AssignmentIncomplete), resp.Rosters[1].Status)

	require.Len(t, resp.Notifications, 2)
	assert.Equal(t, "room-2", resp.Notifications[0].RoomID)
	assert.Equal(t, 2, resp.Stats.SeatsUnfilled)
}

func TestAssignmentServiceRunExcludesSameDayAbsentees(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{mockRoom("room-1", 1)},
		supervisors: []models.Staff{
			mockStaff("sup-a", models.RoleSupervisor, models.RankCollegeEmployee),
			mockStaff("sup-b", models.RoleSupervisor, models.RankExternalEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankExternalEmployee),
		},
		absent: []string{"sup-a"},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sup-b", *resp.Rosters[0].SupervisorID)
}

func TestAssignmentServiceRunPartialStatusWhenObserversShort(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{mockRoom("room-1", 3)},
		supervisors: []models.Staff{
			mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankExternalEmployee),
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.NoError(t, err)

	roster := resp.Rosters[0]
	assert.Equal(t, string(models.AssignmentPartial), roster.Status)
	assert.Equal(t, []string{"obs-1", models.MissingSlot, models.MissingSlot}, roster.ObserverIDs)

	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, string(models.DeficiencyObserver), resp.Notifications[0].Deficiency)
	assert.Equal(t, 2, resp.Notifications[0].Missing)
}

func TestAssignmentServiceRunRejectsExistingDistribution(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms:  []models.Room{mockRoom("room-1", 1)},
		exists: true,
	})

	_, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceRunRejectsUnknownRoom(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{mockRoom("room-1", 1)},
	})

	_, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1", "room-404"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceRunRejectsZeroObserverRoom(t *testing.T) {
	broken := mockRoom("room-1", 0)
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{broken},
	})

	_, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceRunRollsBackOnPersistFailure(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		rooms: []models.Room{mockRoom("room-1", 1)},
		supervisors: []models.Staff{
			mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee),
		},
		observers: []models.Staff{
			mockStaff("obs-1", models.RoleObserver, models.RankExternalEmployee),
		},
	})
	fixture.assignments.createErr = assert.AnError
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectRollback()

	_, err := fixture.service.Run(context.Background(), dto.RunAssignmentRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomIDs: []string{"room-1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAssignmentServiceSnapshotNotFound(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{})

	_, err := fixture.service.Snapshot(context.Background(), dto.AssignmentQuery{
		Date:    "2026-09-01",
		Session: "MORNING",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceSnapshotReadsStoredRosters(t *testing.T) {
	supervisor := "sup-a"
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		stored: []models.DailyAssignment{
			{
				RoomID:       "room-1",
				SupervisorID: &supervisor,
				ObserverIDs:  []string{"obs-1"},
				Status:       models.AssignmentComplete,
				Origin:       models.OriginAutomatic,
			},
		},
	})

	snapshot, err := fixture.service.Snapshot(context.Background(), dto.AssignmentQuery{
		Date:    "2026-09-01",
		Session: "MORNING",
	})
	require.NoError(t, err)
	require.Len(t, snapshot.Rosters, 1)
	assert.Equal(t, "room-1", snapshot.Rosters[0].RoomID)
	assert.Equal(t, "sup-a", *snapshot.Rosters[0].SupervisorID)
}

func TestAssignmentServiceDeleteNotFound(t *testing.T) {
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectRollback()

	err := fixture.service.Delete(context.Background(), dto.AssignmentQuery{
		Date:    "2026-09-01",
		Session: "MORNING",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAssignmentServiceDeleteRemovesDistribution(t *testing.T) {
	supervisor := "sup-a"
	fixture := newAssignmentFixture(t, assignmentFixtureConfig{
		stored: []models.DailyAssignment{
			{RoomID: "room-1", SupervisorID: &supervisor, Status: models.AssignmentComplete},
		},
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	err := fixture.service.Delete(context.Background(), dto.AssignmentQuery{
		Date:    "2026-09-01",
		Session: "MORNING",
	})
	require.NoError(t, err)
	assert.True(t, fixture.history.deleted)
	assert.True(t, fixture.notifications.deleted)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

// --- Fixtures ---

type assignmentFixtureConfig struct {
	rooms       []models.Room
	supervisors []models.Staff
	observers   []models.Staff
	window      []models.HistoryEntry
	absent      []string
	exists      bool
	stored      []models.DailyAssignment
}

type assignmentFixture struct {
	service       *AssignmentService
	assignments   *assignmentRepoStub
	history       *historyRepoStub
	notifications *notificationRepoStub
	mock          sqlmock.Sqlmock
}

func newAssignmentFixture(t *testing.T, cfg assignmentFixtureConfig) *assignmentFixture {
	tx, mock := newTxProviderMock(t)
	assignments := &assignmentRepoStub{exists: cfg.exists, stored: cfg.stored}
	history := &historyRepoStub{window: cfg.window}
	notifications := &notificationRepoStub{}

	svc := NewAssignmentService(
		roomReaderStub{rooms: cfg.rooms},
		staffListerStub{supervisors: cfg.supervisors, observers: cfg.observers},
		assignments,
		history,
		notifications,
		absenceReaderStub{absent: cfg.absent},
		tx,
		nil,
		nil,
		validator.New(),
		zap.NewNop(),
		AssignmentConfig{CollegeRankBonus: 1000, SnapshotCacheTTL: time.Minute},
	)

	return &assignmentFixture{
		service:       svc,
		assignments:   assignments,
		history:       history,
		notifications: notifications,
		mock:          mock,
	}
}

func mockRoom(id string, observers int) models.Room {
	return models.Room{
		ID:                  id,
		Name:                "Room " + id,
		Capacity:            40,
		RequiredSupervisors: 1,
		RequiredObservers:   observers,
		Available:           true,
	}
}

func mockStaff(id string, role models.StaffRole, rank models.StaffRank) models.Staff {
	return models.Staff{ID: id, FullName: id, Role: role, Rank: rank, Status: models.StaffActive}
}

func day(offset int) time.Time {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

type roomReaderStub struct {
	rooms []models.Room
}

func (s roomReaderStub) ListByIDs(ctx context.Context, ids []string) ([]models.Room, error) {
	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}
	var out []models.Room
	for _, room := range s.rooms {
		if _, ok := requested[room.ID]; ok {
			out = append(out, room)
		}
	}
	return out, nil
}

func (s roomReaderStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	for _, room := range s.rooms {
		if room.ID == id {
			r := room
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

type staffListerStub struct {
	supervisors []models.Staff
	observers   []models.Staff
}

func (s staffListerStub) ListActiveByRole(ctx context.Context, role models.StaffRole) ([]models.Staff, error) {
	if role == models.RoleSupervisor {
		return s.supervisors, nil
	}
	return s.observers, nil
}

type assignmentRepoStub struct {
	exists    bool
	stored    []models.DailyAssignment
	created   []models.DailyAssignment
	createErr error
}

func (s *assignmentRepoStub) ExistsAny(ctx context.Context, date time.Time, session models.Session, roomIDs []string) (bool, error) {
	return s.exists, nil
}

func (s *assignmentRepoStub) BulkCreate(ctx context.Context, exec sqlx.ExtContext, rosters []models.DailyAssignment) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, rosters...)
	return nil
}

func (s *assignmentRepoStub) ListByDateSession(ctx context.Context, date time.Time, session models.Session) ([]models.DailyAssignment, error) {
	return s.stored, nil
}

func (s *assignmentRepoStub) DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) (int64, error) {
	return int64(len(s.stored)), nil
}

type historyRepoStub struct {
	window   []models.HistoryEntry
	inserted []models.HistoryEntry
	deleted  bool
}

func (s *historyRepoStub) Window(ctx context.Context, asOf time.Time) ([]models.HistoryEntry, error) {
	return s.window, nil
}

func (s *historyRepoStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.HistoryEntry) error {
	s.inserted = append(s.inserted, entries...)
	return nil
}

func (s *historyRepoStub) DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) error {
	s.deleted = true
	return nil
}

type notificationRepoStub struct {
	inserted []models.Notification
	deleted  bool
}

func (s *notificationRepoStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, notifications []models.Notification) error {
	s.inserted = append(s.inserted, notifications...)
	return nil
}

func (s *notificationRepoStub) DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) error {
	s.deleted = true
	return nil
}

type absenceReaderStub struct {
	absent []string
}

func (s absenceReaderStub) AbsentStaffIDs(ctx context.Context, date time.Time) ([]string, error) {
	return s.absent, nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}
