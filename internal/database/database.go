package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB owns the SQLite connection and hands out the repositories built on it
type DB struct {
	db *sql.DB
}

// New creates and initializes a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := optimizeSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// optimizeSQLite applies pragmas suited to a read-heavy lookup workload
func optimizeSQLite(db *sql.DB) error {
	// WAL lets request handlers read the reference tables while a write is in progress
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// 64MB page cache; the registration master is a few hundred thousand rows
	if _, err := db.Exec("PRAGMA cache_size=-64000"); err != nil {
		return fmt.Errorf("failed to set cache size: %w", err)
	}

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA temp_store=MEMORY"); err != nil {
		return fmt.Errorf("failed to set temp_store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks that the database is reachable
func (d *DB) Ping() error {
	return d.db.Ping()
}

// ReferenceRepository returns the relational reference.Store
func (d *DB) ReferenceRepository() ReferenceRepository {
	return NewReferenceRepository(d.db)
}

func (d *DB) UserRepository() UserRepository {
	return NewUserRepository(d.db)
}

func (d *DB) FlightRepository() FlightRepository {
	return NewFlightRepository(d.db)
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	tables := []struct {
		name   string
		schema string
	}{
		{"faa_master", `CREATE TABLE IF NOT EXISTS faa_master (
			mode_s_code_hex TEXT NOT NULL,
			n_number TEXT NOT NULL,
			serial_number TEXT,
			mfr_mdl_code TEXT,
			year_mfr TEXT,
			name TEXT,
			city TEXT,
			state TEXT
		);`},
		{"faa_acftref", `CREATE TABLE IF NOT EXISTS faa_acftref (
			code TEXT PRIMARY KEY,
			mfr TEXT,
			model TEXT,
			no_seats TEXT
		);`},
		{"users", `CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			email TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`},
		{"flights", `CREATE TABLE IF NOT EXISTS flights (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			callsign TEXT NOT NULL,
			tail_num TEXT,
			man_num TEXT,
			man_year TEXT,
			reg_name TEXT,
			man_name TEXT,
			model_num TEXT,
			thumbnail_src TEXT,
			photographer TEXT,
			origin_country TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`},
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_faa_master_mode_s ON faa_master(mode_s_code_hex)`,
		`CREATE INDEX IF NOT EXISTS idx_flights_user ON flights(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_flights_user_callsign ON flights(user_id, callsign)`,
	}

	for _, t := range tables {
		if _, err := d.db.Exec(t.schema); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
