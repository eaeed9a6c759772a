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

// TrackRepository implements [models.Repository] for [models.CachedTrack] metadata.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

const trackColumns = `id, service, service_id, kind, name, artists, album, image, duration_ms, created_at`

// Create inserts a new [models.CachedTrack] with a generated ID.
func (r *TrackRepository) Create(track *models.CachedTrack) error {
	track.SetID(shared.GenerateID())
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	meta := track.Metadata()
	_, err := r.db.Exec(
		`INSERT INTO tracks (`+trackColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.ID(), track.Service(), track.ServiceID(), meta.Type, meta.Name, meta.Artists, meta.Album,
		meta.ImageURL(), meta.DurationMs, track.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}
	return nil
}

// Get retrieves a cached track by ID
func (r *TrackRepository) Get(id string) (*models.CachedTrack, error) {
	return r.queryOne(`WHERE id = ?`, id)
}

// GetByServiceID retrieves a cached track by service and the service's own identifier.
func (r *TrackRepository) GetByServiceID(service, serviceID string) (*models.CachedTrack, error) {
	return r.queryOne(`WHERE service = ? AND service_id = ?`, strings.ToLower(service), serviceID)
}

// List retrieves cached tracks, optionally filtered by "service" and "kind".
func (r *TrackRepository) List(criteria map[string]any) ([]*models.CachedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE 1 = 1`
	args := []any{}

	for _, key := range []string{"service", "kind"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += fmt.Sprintf(" AND %s = ?", key)
			args = append(args, v)
		}
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.CachedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

func (r *TrackRepository) queryOne(where string, args ...any) (*models.CachedTrack, error) {
	row := r.db.QueryRow(`SELECT `+trackColumns+` FROM tracks `+where, args...)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", shared.ErrTrackNotFound, args)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track: %w", err)
	}
	return track, nil
}

func scanTrack(s scanner) (*models.CachedTrack, error) {
	var (
		id, service, serviceID, kind, name, artists, album, image string
		durationMs                                                int
		createdAt                                                 time.Time
	)
	if err := s.Scan(&id, &service, &serviceID, &kind, &name, &artists, &album, &image, &durationMs, &createdAt); err != nil {
		return nil, err
	}

	meta := models.TrackMetadata{
		ID:         serviceID,
		Name:       name,
		Artists:    artists,
		Album:      album,
		DurationMs: durationMs,
		Type:       kind,
	}
	if image != "" {
		meta.Image = &image
	}

	track := models.NewCachedTrack(service, serviceID, meta)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	return track, nil
}
