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

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	user.SetSequence(sequence)
	user.SetID(shared.GenerateID())

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	_, err = r.db.Exec(
		`INSERT INTO users (id, sequence, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID(), sequence, user.Email(), user.Name(), user.CreatedAt(), user.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(id string) (*models.User, error) {
	return r.queryOne(`WHERE id = ?`, id)
}

// GetByEmail retrieves a user by (case-insensitive) email.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return r.queryOne(`WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

// GetOrCreate returns the user registered under email, creating it with name when absent.
func (r *UserRepository) GetOrCreate(email, name string) (*models.User, error) {
	user, err := r.GetByEmail(email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, shared.ErrUserNotFound) {
		return nil, err
	}

	user = models.NewUser(0, email, name)
	if err := r.Create(user); err != nil {
		if isUniqueViolation(err) {
			return r.GetByEmail(email)
		}
		return nil, err
	}
	return user, nil
}

// List retrieves all users matching the given criteria
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `SELECT id, sequence, email, name, created_at, updated_at FROM users`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " WHERE email = ?"
		args = append(args, strings.ToLower(email))
	}
	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

func (r *UserRepository) queryOne(where string, arg any) (*models.User, error) {
	row := r.db.QueryRow(`SELECT id, sequence, email, name, created_at, updated_at FROM users `+where, arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", shared.ErrUserNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func scanUser(s scanner) (*models.User, error) {
	var (
		id, email, name      string
		sequence             int
		createdAt, updatedAt time.Time
	)
	if err := s.Scan(&id, &sequence, &email, &name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	user := models.NewUser(sequence, email, name)
	user.SetID(id)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	return user, nil
}
