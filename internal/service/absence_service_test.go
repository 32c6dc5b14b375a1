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

func TestAbsenceServiceRecordFirstAbsence(t *testing.T) {
	fixture := newAbsenceFixture(t, absenceFixtureConfig{
		staff:  mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee),
		roster: rosterWithSupervisor("room-1", "sup-a"),
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Record(context.Background(), validAbsenceRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ConsecutiveAbsences)
	assert.False(t, resp.WasSuspended)
	assert.Equal(t, models.StaffActive, fixture.staff.updatedStatus)
	require.Len(t, fixture.records.inserted, 1)
	assert.Equal(t, models.ActionAbsence, fixture.records.inserted[0].Action)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestAbsenceServiceRecordSecondAbsenceSuspends(t *testing.T) {
	member := mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee)
	member.ConsecutiveAbsenceDays = 1
	fixture := newAbsenceFixture(t, absenceFixtureConfig{
		staff:  member,
		roster: rosterWithSupervisor("room-1", "sup-a"),
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	resp, err := fixture.service.Record(context.Background(), validAbsenceRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ConsecutiveAbsences)
	assert.True(t, resp.WasSuspended)
	assert.Equal(t, models.StaffSuspended, fixture.staff.updatedStatus)
	assert.True(t, fixture.metrics.suspended)
}

func TestAbsenceServiceRecordUnknownStaff(t *testing.T) {
	fixture := newAbsenceFixture(t, absenceFixtureConfig{
		roster: rosterWithSupervisor("room-1", "sup-a"),
	})

	_, err := fixture.service.Record(context.Background(), validAbsenceRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAbsenceServiceRecordStaffNotOnRoster(t *testing.T) {
	fixture := newAbsenceFixture(t, absenceFixtureConfig{
		staff:  mockStaff("sup-a", models.RoleSupervisor, models.RankExternalEmployee),
		roster: rosterWithSupervisor("room-1", "sup-other"),
	})

	_, err := fixture.service.Record(context.Background(), validAbsenceRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fixture.records.inserted)
}

func TestAbsenceServiceRecordObserverSeatCounts(t *testing.T) {
	roster := rosterWithSupervisor("room-1", "sup-other")
	roster.ObserverIDs = []string{"obs-a", models.MissingSlot}
	fixture := newAbsenceFixture(t, absenceFixtureConfig{
		staff:  mockStaff("obs-a", models.RoleObserver, models.RankExternalEmployee),
		roster: roster,
	})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	req := validAbsenceRequest()
	req.StaffID = "obs-a"
	resp, err := fixture.service.Record(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ConsecutiveAbsences)
}

// --- Fixtures ---

type absenceFixtureConfig struct {
	staff  models.Staff
	roster *models.DailyAssignment
}

type absenceFixture struct {
	service *AbsenceService
	staff   *staffDirectoryStub
	records *absenceRecorderStub
	metrics *absenceObserverStub
	mock    sqlmock.Sqlmock
}

func newAbsenceFixture(t *testing.T, cfg absenceFixtureConfig) *absenceFixture {
	tx, mock := newTxProviderMock(t)
	staff := &staffDirectoryStub{member: cfg.staff}
	records := &absenceRecorderStub{}
	metrics := &absenceObserverStub{}

	svc := NewAbsenceService(
		staff,
		rosterReaderStub{roster: cfg.roster},
		records,
		tx,
		nil,
		metrics,
		validator.New(),
		zap.NewNop(),
		2,
	)

	return &absenceFixture{service: svc, staff: staff, records: records, metrics: metrics, mock: mock}
}

func validAbsenceRequest() dto.RecordAbsenceRequest {
	return dto.RecordAbsenceRequest{
		Date:    "2026-09-01",
		Session: "MORNING",
		RoomID:  "room-1",
		StaffID: "sup-a",
		Reason:  "sick leave",
	}
}

func rosterWithSupervisor(roomID, supervisorID string) *models.DailyAssignment {
	return &models.DailyAssignment{
		RoomID:       roomID,
		SupervisorID: &supervisorID,
		ObserverIDs:  []string{"obs-1"},
		Status:       models.AssignmentComplete,
		Origin:       models.OriginAutomatic,
	}
}

type staffDirectoryStub struct {
	member        models.Staff
	updatedCount  int
	updatedStatus models.StaffStatus
}

func (s *staffDirectoryStub) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	if s.member.ID != id {
		return nil, sql.ErrNoRows
	}
	member := s.member
	return &member, nil
}

func (s *staffDirectoryStub) UpdateAbsenceState(ctx context.Context, exec sqlx.ExtContext, id string, count int, lastAbsence time.Time, status models.StaffStatus) error {
	s.updatedCount = count
	s.updatedStatus = status
	return nil
}

type rosterReaderStub struct {
	roster *models.DailyAssignment
}

func (s rosterReaderStub) FindByRoom(ctx context.Context, date time.Time, session models.Session, roomID string) (*models.DailyAssignment, error) {
	if s.roster == nil || s.roster.RoomID != roomID {
		return nil, sql.ErrNoRows
	}
	return s.roster, nil
}

type absenceRecorderStub struct {
	inserted []models.AbsenceReplacementRecord
}

func (s *absenceRecorderStub) Insert(ctx context.Context, exec sqlx.ExtContext, record *models.AbsenceReplacementRecord) error {
	s.inserted = append(s.inserted, *record)
	return nil
}

type absenceObserverStub struct {
	events    int
	suspended bool
}

func (s *absenceObserverStub) ObserveAbsence(suspended bool) {
	s.events++
	if suspended {
		s.suspended = true
	}
}
