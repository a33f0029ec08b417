package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flight_spotter/internal/models"
)

var ErrFlightNotFound = errors.New("flight not found for the user")

// FlightRepository persists each user's spotted aircraft
type FlightRepository interface {
	Add(ctx context.Context, f *models.SpottedFlight) (*models.SpottedFlight, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.SpottedFlight, error)
	Remove(ctx context.Context, userID int64, callsign string) (*models.SpottedFlight, error)
}

type flightRepository struct {
	db *sql.DB
}

func NewFlightRepository(db *sql.DB) FlightRepository {
	return &flightRepository{db: db}
}

const flightColumns = `id, user_id, callsign, tail_num, man_num, man_year, reg_name, man_name,
	model_num, thumbnail_src, photographer, origin_country, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(row rowScanner) (*models.SpottedFlight, error) {
	var f models.SpottedFlight
	if err := row.Scan(
		&f.ID, &f.UserID, &f.Callsign, &f.TailNum, &f.ManNum, &f.ManYear, &f.RegName,
		&f.ManName, &f.ModelNum, &f.ThumbnailSrc, &f.Photographer, &f.OriginCountry, &f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *flightRepository) Add(ctx context.Context, f *models.SpottedFlight) (*models.SpottedFlight, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO flights (
		user_id, callsign, tail_num, man_num, man_year, reg_name, man_name,
		model_num, thumbnail_src, photographer, origin_country
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.UserID, f.Callsign, f.TailNum, f.ManNum, f.ManYear, f.RegName, f.ManName,
		f.ModelNum, f.ThumbnailSrc, f.Photographer, f.OriginCountry,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert flight: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read flight id: %w", err)
	}

	saved, err := scanFlight(r.db.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted flight: %w", err)
	}
	return saved, nil
}

func (r *flightRepository) ListByUser(ctx context.Context, userID int64) ([]*models.SpottedFlight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	flights := make([]*models.SpottedFlight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// Remove deletes every flight of the user with this callsign and returns the first one removed
func (r *flightRepository) Remove(ctx context.Context, userID int64, callsign string) (*models.SpottedFlight, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	first, err := scanFlight(tx.QueryRowContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE user_id = ? AND callsign = ? ORDER BY id LIMIT 1`,
		userID, callsign))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query flight: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM flights WHERE user_id = ? AND callsign = ?`, userID, callsign); err != nil {
		return nil, fmt.Errorf("failed to delete flight: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return first, nil
}
