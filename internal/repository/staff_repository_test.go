package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invigilo/proctor-api/internal/models"
)

func staffRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "full_name", "phone", "specialization", "role", "rank", "status", "consecutive_absence_days", "last_absence_date", "created_at", "updated_at"})
}

func TestStaffRepositoryFindByID(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStaffRepository(db)

	rows := staffRows().
		AddRow("sup-1", "Sami Haddad", nil, nil, string(models.RoleSupervisor), string(models.RankCollegeEmployee), string(models.StaffActive), 0, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, full_name, phone, specialization").
		WithArgs("sup-1").
		WillReturnRows(rows)

	staff, err := repo.FindByID(context.Background(), "sup-1")
	require.NoError(t, err)
	assert.Equal(t, models.RankCollegeEmployee, staff.Rank)
	assert.Nil(t, staff.LastAbsenceDate)
}

func TestStaffRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStaffRepository(db)

	mock.ExpectQuery("SELECT id, full_name, phone, specialization").
		WithArgs("sup-404").
		WillReturnRows(staffRows())

	_, err := repo.FindByID(context.Background(), "sup-404")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStaffRepositoryListActiveByRoleAndRank(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStaffRepository(db)

	rows := staffRows().
		AddRow("obs-1", "Lina Aoun", nil, nil, string(models.RoleObserver), string(models.RankExternalEmployee), string(models.StaffActive), 0, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, full_name, phone, specialization").
		WithArgs(models.RoleObserver, models.RankExternalEmployee, models.StaffActive).
		WillReturnRows(rows)

	staff, err := repo.ListActiveByRoleAndRank(context.Background(), models.RoleObserver, models.RankExternalEmployee)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "obs-1", staff[0].ID)
}

func TestStaffRepositoryUpdateAbsenceState(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStaffRepository(db)

	absenceDate := asOfDate()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff SET consecutive_absence_days = $2, last_absence_date = $3, status = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("sup-1", 2, absenceDate, models.StaffSuspended, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateAbsenceState(context.Background(), db, "sup-1", 2, absenceDate, models.StaffSuspended)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryReactivateOnlySuspended(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStaffRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff SET status = $2, consecutive_absence_days = 0, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("sup-1", models.StaffActive, sqlmock.AnyArg(), models.StaffSuspended).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reactivate(context.Background(), "sup-1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
