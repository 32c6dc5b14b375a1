package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/invigilo/proctor-api/internal/models"
)

// StaffRepository reads the staff directory and writes the narrow slice of state this
// service owns: status and the consecutive-absence counter.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

const staffColumns = `id, full_name, phone, specialization, role, rank, status, consecutive_absence_days, last_absence_date, created_at, updated_at`

// FindByID loads one staff member.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff WHERE id = $1`, staffColumns)
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff: %w", err)
	}
	return &staff, nil
}

// ListActiveByRole returns every active staff member of the role, ordered by id so the
// eligibility pool ordering is reproducible before priority sorting is applied.
func (r *StaffRepository) ListActiveByRole(ctx context.Context, role models.StaffRole) ([]models.Staff, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff WHERE role = $1 AND status = $2 ORDER BY id ASC`, staffColumns)
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, role, models.StaffActive); err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	return staff, nil
}

// ListActiveByRoleAndRank narrows the active listing to one rank, for the same-rank
// automatic replacement policy.
func (r *StaffRepository) ListActiveByRoleAndRank(ctx context.Context, role models.StaffRole, rank models.StaffRank) ([]models.Staff, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff WHERE role = $1 AND rank = $2 AND status = $3 ORDER BY id ASC`, staffColumns)
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, role, rank, models.StaffActive); err != nil {
		return nil, fmt.Errorf("list active staff by rank: %w", err)
	}
	return staff, nil
}

// UpdateAbsenceState writes the counter, last absence date and (possibly suspended)
// status inside the caller's transaction.
func (r *StaffRepository) UpdateAbsenceState(ctx context.Context, exec sqlx.ExtContext, id string, count int, lastAbsence time.Time, status models.StaffStatus) error {
	const query = `UPDATE staff SET consecutive_absence_days = $2, last_absence_date = $3, status = $4, updated_at = $5 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, id, count, lastAbsence, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update absence state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated staff rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Reactivate restores a suspended staff member and resets the counter to zero.
func (r *StaffRepository) Reactivate(ctx context.Context, id string) error {
	const query = `UPDATE staff SET status = $2, consecutive_absence_days = 0, updated_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.StaffActive, time.Now().UTC(), models.StaffSuspended)
	if err != nil {
		return fmt.Errorf("reactivate staff: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reactivated staff rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
