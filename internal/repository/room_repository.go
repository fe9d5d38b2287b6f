package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

// RoomRepository reads the meeting_room table.
type RoomRepository struct {
	db *sqlx.DB
}

func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns all rooms ordered by name.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT room_id, name FROM meeting_room ORDER BY name ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindByName resolves a room by its exact name.
func (r *RoomRepository) FindByName(ctx context.Context, name string) (*models.Room, error) {
	const query = `SELECT room_id, name FROM meeting_room WHERE name = $1 LIMIT 1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find room by name: %w", err)
	}
	return &room, nil
}
