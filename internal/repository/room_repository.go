package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/invigilo/proctor-api/internal/models"
)

// RoomRepository reads the room directory.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindByID loads one room.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, name, capacity, required_supervisors, required_observers, available FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

// ListByIDs returns the rooms matching ids. Callers detect unknown ids by comparing
// result length against the input.
func (r *RoomRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Room, error) {
	const query = `SELECT id, name, capacity, required_supervisors, required_observers, available FROM rooms WHERE id = ANY($1)`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}
