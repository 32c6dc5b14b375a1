package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invigilo/proctor-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func asOfDate() time.Time {
	return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
}

func TestHistoryRepositoryHasWorkedInRoomUsesHalfOpenWindow(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewHistoryRepository(db, 30)

	asOf := asOfDate()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM assignment_history WHERE staff_id = $1 AND room_id = $2 AND date >= $3 AND date < $4 LIMIT 1")).
		WithArgs("staff-1", "room-1", asOf.AddDate(0, 0, -30), asOf).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	worked, err := repo.HasWorkedInRoom(context.Background(), "staff-1", "room-1", asOf)
	require.NoError(t, err)
	assert.True(t, worked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepositoryHasWorkedInRoomNoRows(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewHistoryRepository(db, 30)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM assignment_history")).
		WithArgs("staff-1", "room-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	worked, err := repo.HasWorkedInRoom(context.Background(), "staff-1", "room-1", asOfDate())
	require.NoError(t, err)
	assert.False(t, worked)
}

func TestHistoryRepositoryParticipationCounts(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewHistoryRepository(db, 30)

	rows := sqlmock.NewRows([]string{"staff_id", "total"}).
		AddRow("staff-1", 4).
		AddRow("staff-2", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT staff_id, COUNT(*) AS total FROM assignment_history WHERE date >= $1 AND date < $2 GROUP BY staff_id")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	counts, err := repo.ParticipationCounts(context.Background(), asOfDate())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"staff-1": 4, "staff-2": 1}, counts)
}

func TestHistoryRepositoryWindow(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewHistoryRepository(db, 30)

	supervisor := "sup-1"
	rows := sqlmock.NewRows([]string{"id", "date", "session", "staff_id", "room_id", "role", "paired_supervisor_id", "created_at"}).
		AddRow("h-1", asOfDate().AddDate(0, 0, -3), string(models.SessionMorning), "obs-1", "room-1", string(models.RoleObserver), supervisor, time.Now())
	mock.ExpectQuery("SELECT id, date, session, staff_id, room_id, role, paired_supervisor_id, created_at").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	entries, err := repo.Window(context.Background(), asOfDate())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "obs-1", entries[0].StaffID)
	require.NotNil(t, entries[0].PairedSupervisorID)
	assert.Equal(t, "sup-1", *entries[0].PairedSupervisorID)
}

func TestHistoryRepositoryReplaceSlotReturnsRemovedCount(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewHistoryRepository(db, 30)

	entry := models.HistoryEntry{
		Date:    asOfDate(),
		Session: models.SessionMorning,
		StaffID: "sup-new",
		RoomID:  "room-1",
		Role:    models.RoleSupervisor,
	}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignment_history WHERE date = $1 AND session = $2 AND staff_id = $3")).
		WithArgs(entry.Date, entry.Session, "sup-old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignment_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	removed, err := repo.ReplaceSlot(context.Background(), db, "sup-old", entry)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepositoryInsertBatchFillsDefaults(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewHistoryRepository(db, 30)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignment_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entries := []models.HistoryEntry{
		{Date: asOfDate(), Session: models.SessionMorning, StaffID: "sup-1", RoomID: "room-1", Role: models.RoleSupervisor},
	}
	err := repo.InsertBatch(context.Background(), db, entries)
	require.NoError(t, err)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}
