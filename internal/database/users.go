package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"flight_spotter/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username already taken")
)

type UserRepository interface {
	Create(ctx context.Context, username, passwordHash, email string) (*models.User, error)
	Get(ctx context.Context, username string) (*models.User, error)
	GetWithPassword(ctx context.Context, username string) (*models.User, string, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, username string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Create stores a new account. passwordHash must already be hashed.
func (r *userRepository) Create(ctx context.Context, username, passwordHash, email string) (*models.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password, email) VALUES (?, ?, ?)`,
		username, passwordHash, email)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}

	return &models.User{ID: id, Username: username, Email: email}, nil
}

func (r *userRepository) Get(ctx context.Context, username string) (*models.User, error) {
	user, _, err := r.GetWithPassword(ctx, username)
	return user, err
}

// GetWithPassword returns the user together with the stored password hash
func (r *userRepository) GetWithPassword(ctx context.Context, username string) (*models.User, string, error) {
	var user models.User
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password FROM users WHERE username = ?`, username,
	).Scan(&user.ID, &user.Username, &user.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to query user: %w", err)
	}
	return &user, hash, nil
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, email FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Delete removes the user and their spotted flights in one transaction
func (r *userRepository) Delete(ctx context.Context, username string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM flights WHERE user_id IN (SELECT id FROM users WHERE username = ?)`, username); err != nil {
		return fmt.Errorf("failed to delete flights: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
