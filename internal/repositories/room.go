package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/colisten/internal/models"
	"github.com/desertthunder/colisten/internal/shared"
)

// maxJoinCodeAttempts bounds retries when a generated join code collides with an existing room.
const maxJoinCodeAttempts = 5

// RoomRepository implements [models.Repository] for [models.Room] persistence.
type RoomRepository struct {
	db          *sql.DB
	newJoinCode func() (string, error)
}

// NewRoomRepository creates a new [RoomRepository] with the given database connection
func NewRoomRepository(db *sql.DB) *RoomRepository {
	return &RoomRepository{db: db, newJoinCode: shared.GenerateJoinCode}
}

const roomColumns = `id, sequence, name, mode, owner_id, join_code, created_at, updated_at`

// Create inserts a new room with a generated ID, sequence and join code.
//
// Join code collisions are retried with a fresh code.
func (r *RoomRepository) Create(room *models.Room) error {
	sequence, err := NextSequence(r.db, "rooms")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	room.SetSequence(sequence)
	room.SetID(shared.GenerateID())

	for attempt := 1; ; attempt++ {
		code, err := r.newJoinCode()
		if err != nil {
			return err
		}
		room.SetJoinCode(code)

		if err := room.Validate(); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}

		_, err = r.db.Exec(
			`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			room.ID(), room.Sequence(), room.Name(), string(room.Mode()), room.OwnerID(), room.JoinCode(),
			room.CreatedAt(), room.UpdatedAt(),
		)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) || !strings.Contains(err.Error(), "join_code") || attempt >= maxJoinCodeAttempts {
			return fmt.Errorf("failed to insert room: %w", err)
		}
	}
}

// Get retrieves a room by ID.
func (r *RoomRepository) Get(id string) (*models.Room, error) {
	row := r.db.QueryRow(`SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRoomNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query room: %w", err)
	}
	return room, nil
}

// GetByJoinCode retrieves a room by its join code. Input is trimmed and upper-cased first.
func (r *RoomRepository) GetByJoinCode(code string) (*models.Room, error) {
	code = shared.NormalizeJoinCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: join code is required", shared.ErrInvalidInput)
	}

	row := r.db.QueryRow(`SELECT `+roomColumns+` FROM rooms WHERE join_code = ? LIMIT 1`, code)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: code %s", shared.ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query room: %w", err)
	}
	return room, nil
}

// List retrieves rooms matching criteria, newest first.
//
// Supported keys: "owner_id" (string), "mode" ([models.RoomMode] or string), "limit" (int).
func (r *RoomRepository) List(criteria map[string]any) ([]*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE 1 = 1`
	args := []any{}

	if owner, ok := criteria["owner_id"].(string); ok && owner != "" {
		query += " AND owner_id = ?"
		args = append(args, owner)
	}
	switch mode := criteria["mode"].(type) {
	case models.RoomMode:
		query += " AND mode = ?"
		args = append(args, string(mode))
	case string:
		if mode != "" {
			query += " AND mode = ?"
			args = append(args, mode)
		}
	}

	query += " ORDER BY sequence DESC"
	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return rooms, nil
}

// ListByOwner returns the rooms created by ownerID.
func (r *RoomRepository) ListByOwner(ownerID string) ([]*models.Room, error) {
	return r.List(map[string]any{"owner_id": ownerID})
}

func scanRoom(s scanner) (*models.Room, error) {
	var (
		id, name, mode, ownerID, joinCode string
		sequence                          int
		createdAt, updatedAt              time.Time
	)
	if err := s.Scan(&id, &sequence, &name, &mode, &ownerID, &joinCode, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	room := models.NewRoom(sequence, name, models.RoomMode(mode), ownerID)
	room.SetID(id)
	room.SetJoinCode(joinCode)
	room.SetCreatedAt(createdAt)
	room.SetUpdatedAt(updatedAt)
	return room, nil
}
