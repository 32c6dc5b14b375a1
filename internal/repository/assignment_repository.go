package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/invigilo/proctor-api/internal/models"
)

// AssignmentRepository persists daily room rosters. The table carries a uniqueness
// constraint on (date, session, room_id); the pre-run existence check is a courtesy,
// the constraint is what actually closes the check-then-insert race.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, date, session, room_id, supervisor_id, observer_ids, status, origin, notes, created_at, updated_at`

// ExistsAny reports whether any of the rooms already has a roster for the date/session.
func (r *AssignmentRepository) ExistsAny(ctx context.Context, date time.Time, session models.Session, roomIDs []string) (bool, error) {
	const query = `SELECT 1 FROM daily_assignments WHERE date = $1 AND session = $2 AND room_id = ANY($3) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, date, session, pq.Array(roomIDs)); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check existing assignments: %w", err)
	}
	return true, nil
}

// BulkCreate inserts every roster of one engine run inside the caller's transaction.
func (r *AssignmentRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, rosters []models.DailyAssignment) error {
	const query = `INSERT INTO daily_assignments (id, date, session, room_id, supervisor_id, observer_ids, status, origin, notes, created_at, updated_at)
		VALUES (:id, :date, :session, :room_id, :supervisor_id, :observer_ids, :status, :origin, :notes, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range rosters {
		if rosters[i].ID == "" {
			rosters[i].ID = uuid.NewString()
		}
		if rosters[i].CreatedAt.IsZero() {
			rosters[i].CreatedAt = now
		}
		rosters[i].UpdatedAt = rosters[i].CreatedAt
		if _, err := sqlx.NamedExecContext(ctx, exec, query, rosters[i]); err != nil {
			return fmt.Errorf("insert daily assignment: %w", err)
		}
	}
	return nil
}

// FindByRoom loads the roster of one room for a date/session.
func (r *AssignmentRepository) FindByRoom(ctx context.Context, date time.Time, session models.Session, roomID string) (*models.DailyAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_assignments WHERE date = $1 AND session = $2 AND room_id = $3`, assignmentColumns)
	var assignment models.DailyAssignment
	if err := r.db.GetContext(ctx, &assignment, query, date, session, roomID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find daily assignment: %w", err)
	}
	return &assignment, nil
}

// ListByDateSession returns the full distribution, room order stable.
func (r *AssignmentRepository) ListByDateSession(ctx context.Context, date time.Time, session models.Session) ([]models.DailyAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_assignments WHERE date = $1 AND session = $2 ORDER BY room_id ASC`, assignmentColumns)
	var assignments []models.DailyAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, date, session); err != nil {
		return nil, fmt.Errorf("list daily assignments: %w", err)
	}
	return assignments, nil
}

// UpdateSlots rewrites the mutable roster fields inside the caller's transaction.
func (r *AssignmentRepository) UpdateSlots(ctx context.Context, exec sqlx.ExtContext, assignment *models.DailyAssignment) error {
	const query = `UPDATE daily_assignments
		SET supervisor_id = $2, observer_ids = $3, status = $4, origin = $5, notes = $6, updated_at = $7
		WHERE id = $1`
	result, err := exec.ExecContext(ctx, query,
		assignment.ID,
		assignment.SupervisorID,
		assignment.ObserverIDs,
		assignment.Status,
		assignment.Origin,
		assignment.Notes,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update daily assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByDateSession removes the distribution rows as part of the purge transaction.
func (r *AssignmentRepository) DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) (int64, error) {
	const query = `DELETE FROM daily_assignments WHERE date = $1 AND session = $2`
	result, err := exec.ExecContext(ctx, query, date, session)
	if err != nil {
		return 0, fmt.Errorf("delete daily assignments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted assignment rows: %w", err)
	}
	return affected, nil
}
