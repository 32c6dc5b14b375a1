package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/invigilo/proctor-api/internal/models"
)

// AbsenceRecordRepository appends rows to the absence/replacement audit log. Rows are
// never updated or deleted; reporting consumes them elsewhere.
type AbsenceRecordRepository struct {
	db *sqlx.DB
}

// NewAbsenceRecordRepository constructs the repository.
func NewAbsenceRecordRepository(db *sqlx.DB) *AbsenceRecordRepository {
	return &AbsenceRecordRepository{db: db}
}

// Insert appends one audit row inside the caller's transaction.
func (r *AbsenceRecordRepository) Insert(ctx context.Context, exec sqlx.ExtContext, record *models.AbsenceReplacementRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO absence_replacements (id, date, session, room_id, original_staff_id, replacement_staff_id, action, reason, created_at)
		VALUES (:id, :date, :session, :room_id, :original_staff_id, :replacement_staff_id, :action, :reason, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, record); err != nil {
		return fmt.Errorf("insert absence record: %w", err)
	}
	return nil
}

// AbsentStaffIDs returns staff with a recorded absence on the date; the eligibility
// pool excludes them regardless of session.
func (r *AbsenceRecordRepository) AbsentStaffIDs(ctx context.Context, date time.Time) ([]string, error) {
	const query = `SELECT DISTINCT original_staff_id FROM absence_replacements WHERE date = $1 AND action = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date, models.ActionAbsence); err != nil {
		return nil, fmt.Errorf("list absent staff: %w", err)
	}
	return ids, nil
}

// ListByDate returns the audit rows of one day, newest first.
func (r *AbsenceRecordRepository) ListByDate(ctx context.Context, date time.Time) ([]models.AbsenceReplacementRecord, error) {
	const query = `SELECT id, date, session, room_id, original_staff_id, replacement_staff_id, action, reason, created_at
FROM absence_replacements
WHERE date = $1
ORDER BY created_at DESC`
	var records []models.AbsenceReplacementRecord
	if err := r.db.SelectContext(ctx, &records, query, date); err != nil {
		return nil, fmt.Errorf("list absence records: %w", err)
	}
	return records, nil
}
