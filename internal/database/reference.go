package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"flight_spotter/internal/models"
	"flight_spotter/internal/reference"
)

// ReferenceRepository is the relational variant of reference.Store over the
// faa_master and faa_acftref tables
type ReferenceRepository interface {
	reference.Store
	InsertRegistrations(regs []*models.RegistrationRecord) error
	InsertAirframes(airframes []*models.AirframeRecord) error
	IsTablePopulated() (bool, error)
	LoadFromSource(src reference.Source, batchSize int) error
}

type referenceRepository struct {
	db *sql.DB
}

func NewReferenceRepository(db *sql.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LookupRegistration matches the trimmed hex column case-insensitively (SQLite LIKE folds ASCII case).
// Each call issues a fresh query.
func (r *referenceRepository) LookupRegistration(ctx context.Context, code models.TransponderCode) (*models.RegistrationRecord, error) {
	pattern := likeEscaper.Replace(reference.NormalizeField(string(code)))

	var reg models.RegistrationRecord
	err := r.db.QueryRowContext(ctx, `SELECT
		TRIM(mode_s_code_hex), n_number, COALESCE(serial_number, ''), COALESCE(mfr_mdl_code, ''),
		COALESCE(year_mfr, ''), COALESCE(name, ''), COALESCE(city, ''), COALESCE(state, '')
		FROM faa_master
		WHERE TRIM(mode_s_code_hex) LIKE ? ESCAPE '\'
		LIMIT 1`, pattern).Scan(
		&reg.ModeSCodeHex, &reg.TailNumber, &reg.SerialNumber, &reg.MfrModelCode,
		&reg.YearMfr, &reg.RegisteredName, &reg.City, &reg.State,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reference.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query faa_master: %w", err)
	}
	return &reg, nil
}

// LookupAirframe matches the code column exactly
func (r *referenceRepository) LookupAirframe(ctx context.Context, mfrModelCode string) (*models.AirframeRecord, error) {
	var af models.AirframeRecord
	err := r.db.QueryRowContext(ctx, `SELECT code, COALESCE(mfr, ''), COALESCE(model, ''), COALESCE(no_seats, '')
		FROM faa_acftref
		WHERE code = ?`, mfrModelCode).Scan(&af.Code, &af.Manufacturer, &af.Model, &af.NumSeats)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reference.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query faa_acftref: %w", err)
	}
	return &af, nil
}

// InsertRegistrations inserts one or more registration rows in a single transaction
func (r *referenceRepository) InsertRegistrations(regs []*models.RegistrationRecord) error {
	if len(regs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO faa_master (
		mode_s_code_hex, n_number, serial_number, mfr_mdl_code, year_mfr, name, city, state
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, reg := range regs {
		if _, err := stmt.Exec(
			reg.ModeSCodeHex, reg.TailNumber, reg.SerialNumber, reg.MfrModelCode,
			reg.YearMfr, reg.RegisteredName, reg.City, reg.State,
		); err != nil {
			return fmt.Errorf("failed to insert registration: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InsertAirframes inserts or replaces airframe rows in a single transaction
func (r *referenceRepository) InsertAirframes(airframes []*models.AirframeRecord) error {
	if len(airframes) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO faa_acftref (code, mfr, model, no_seats) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, af := range airframes {
		if _, err := stmt.Exec(af.Code, af.Manufacturer, af.Model, af.NumSeats); err != nil {
			return fmt.Errorf("failed to insert airframe: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *referenceRepository) IsTablePopulated() (bool, error) {
	var ignored int
	err := r.db.QueryRow("SELECT 1 FROM faa_master LIMIT 1").Scan(&ignored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check faa_master table: %w", err)
	}
	return true, nil
}

// LoadFromSource decodes both FAA files and writes them in batches of batchSize rows
func (r *referenceRepository) LoadFromSource(src reference.Source, batchSize int) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0")
	}

	regs, airframes, err := src.Read()
	if err != nil {
		return err
	}

	if err := insertInBatches(regs, batchSize, r.InsertRegistrations); err != nil {
		return fmt.Errorf("failed to load registrations: %w", err)
	}
	if err := insertInBatches(airframes, batchSize, r.InsertAirframes); err != nil {
		return fmt.Errorf("failed to load airframes: %w", err)
	}

	slog.Info("Loaded reference datasets into database",
		"registrations", len(regs),
		"airframes", len(airframes),
	)
	return nil
}

func insertInBatches[T any](rows []T, batchSize int, insert func([]T) error) error {
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if err := insert(rows[start:end]); err != nil {
			return fmt.Errorf("failed to insert batch at row %d: %w", start, err)
		}
	}
	return nil
}
