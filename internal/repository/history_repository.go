package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/invigilo/proctor-api/internal/models"
)

// HistoryRepository persists the rolling participation ledger used for the
// non-repetition constraint checks. All window queries use the half-open interval
// [asOf-window, asOf): the assignment date itself never counts against its own run.
type HistoryRepository struct {
	db         *sqlx.DB
	windowDays int
}

// NewHistoryRepository constructs the repository. windowDays <= 0 falls back to 30.
func NewHistoryRepository(db *sqlx.DB, windowDays int) *HistoryRepository {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &HistoryRepository{db: db, windowDays: windowDays}
}

func (r *HistoryRepository) windowStart(asOf time.Time) time.Time {
	return asOf.AddDate(0, 0, -r.windowDays)
}

// HasWorkedInRoom reports whether the staff member served in the room inside the window.
func (r *HistoryRepository) HasWorkedInRoom(ctx context.Context, staffID, roomID string, asOf time.Time) (bool, error) {
	const query = `SELECT 1 FROM assignment_history WHERE staff_id = $1 AND room_id = $2 AND date >= $3 AND date < $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, staffID, roomID, r.windowStart(asOf), asOf); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check room history: %w", err)
	}
	return true, nil
}

// HasPairedWithSupervisor reports whether the observer already worked under the
// supervisor inside the window.
func (r *HistoryRepository) HasPairedWithSupervisor(ctx context.Context, observerID, supervisorID string, asOf time.Time) (bool, error) {
	const query = `SELECT 1 FROM assignment_history WHERE staff_id = $1 AND paired_supervisor_id = $2 AND date >= $3 AND date < $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, observerID, supervisorID, r.windowStart(asOf), asOf); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pairing history: %w", err)
	}
	return true, nil
}

// ParticipationCount counts ledger rows for the staff member inside the window.
func (r *HistoryRepository) ParticipationCount(ctx context.Context, staffID string, asOf time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM assignment_history WHERE staff_id = $1 AND date >= $2 AND date < $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, staffID, r.windowStart(asOf), asOf); err != nil {
		return 0, fmt.Errorf("count participation: %w", err)
	}
	return count, nil
}

// ParticipationCounts returns per-staff counts inside the window in one query; staff
// with no rows are simply absent from the map.
func (r *HistoryRepository) ParticipationCounts(ctx context.Context, asOf time.Time) (map[string]int, error) {
	const query = `SELECT staff_id, COUNT(*) AS total FROM assignment_history WHERE date >= $1 AND date < $2 GROUP BY staff_id`
	rows := []struct {
		StaffID string `db:"staff_id"`
		Total   int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, r.windowStart(asOf), asOf); err != nil {
		return nil, fmt.Errorf("bulk participation counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.StaffID] = row.Total
	}
	return counts, nil
}

// Window loads every ledger row inside the window for in-memory constraint checks
// during an assignment run.
func (r *HistoryRepository) Window(ctx context.Context, asOf time.Time) ([]models.HistoryEntry, error) {
	const query = `SELECT id, date, session, staff_id, room_id, role, paired_supervisor_id, created_at
FROM assignment_history
WHERE date >= $1 AND date < $2
ORDER BY date ASC`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, r.windowStart(asOf), asOf); err != nil {
		return nil, fmt.Errorf("load history window: %w", err)
	}
	return entries, nil
}

// ExistsForStaff reports whether a current ledger row exists for the staff member on
// the exact date and session, i.e. whether they are already serving somewhere.
func (r *HistoryRepository) ExistsForStaff(ctx context.Context, date time.Time, session models.Session, staffID string) (bool, error) {
	const query = `SELECT 1 FROM assignment_history WHERE date = $1 AND session = $2 AND staff_id = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, date, session, staffID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check current ledger row: %w", err)
	}
	return true, nil
}

// InsertBatch writes ledger rows for every placed staff member of a run.
func (r *HistoryRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.HistoryEntry) error {
	const query = `INSERT INTO assignment_history (id, date, session, staff_id, room_id, role, paired_supervisor_id, created_at)
		VALUES (:id, :date, :session, :staff_id, :room_id, :role, :paired_supervisor_id, :created_at)`
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, query, entries[i]); err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
	}
	return nil
}

// ReplaceSlot retires the old staff member's ledger row for (date, session) and inserts
// the replacement's row as one delete-then-insert. It returns the number of rows the
// delete removed so callers can verify the one-current-row invariant; a skipped delete
// would silently poison constraint checks for up to the full window.
func (r *HistoryRepository) ReplaceSlot(ctx context.Context, exec sqlx.ExtContext, oldStaffID string, entry models.HistoryEntry) (int64, error) {
	const deleteQuery = `DELETE FROM assignment_history WHERE date = $1 AND session = $2 AND staff_id = $3`
	result, err := exec.ExecContext(ctx, deleteQuery, entry.Date, entry.Session, oldStaffID)
	if err != nil {
		return 0, fmt.Errorf("retire ledger row: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check retired ledger rows: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const insertQuery = `INSERT INTO assignment_history (id, date, session, staff_id, room_id, role, paired_supervisor_id, created_at)
		VALUES (:id, :date, :session, :staff_id, :room_id, :role, :paired_supervisor_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, insertQuery, entry); err != nil {
		return removed, fmt.Errorf("insert replacement ledger row: %w", err)
	}
	return removed, nil
}

// DeleteByDateSession purges the ledger rows of one distribution.
func (r *HistoryRepository) DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) error {
	const query = `DELETE FROM assignment_history WHERE date = $1 AND session = $2`
	if _, err := exec.ExecContext(ctx, query, date, session); err != nil {
		return fmt.Errorf("delete history rows: %w", err)
	}
	return nil
}
