package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:testpad.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/testpad?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time; avoids SQLITE_BUSY on session upgrades
		db.SetMaxOpenConns(1)
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  timer_minutes INTEGER NOT NULL,
  correct_mark REAL NOT NULL,
  wrong_mark REAL NOT NULL,
  is_subject_wise BOOLEAN NOT NULL DEFAULT 0,
  content_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  test_id TEXT,                -- NULL for the default test
  started_at INTEGER NOT NULL,
  ended_at INTEGER,
  answers_json TEXT NOT NULL,
  skipped_json TEXT NOT NULL,
  result_json TEXT
);

CREATE TABLE IF NOT EXISTS saved_tests (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL,
  test_name TEXT NOT NULL,
  timer_minutes INTEGER NOT NULL,
  correct_mark REAL NOT NULL,
  wrong_mark REAL NOT NULL,
  is_subject_wise BOOLEAN NOT NULL DEFAULT 0,
  content_json TEXT NOT NULL,
  saved_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS saved_tests_saved_at ON saved_tests(saved_at);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., SessionEnded
  key TEXT NOT NULL,                         -- natural key: sessionId/testId
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  timer_minutes INTEGER NOT NULL,
  correct_mark DOUBLE PRECISION NOT NULL,
  wrong_mark DOUBLE PRECISION NOT NULL,
  is_subject_wise BOOLEAN NOT NULL DEFAULT FALSE,
  content_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  test_id TEXT,
  started_at BIGINT NOT NULL,
  ended_at BIGINT,
  answers_json TEXT NOT NULL,
  skipped_json TEXT NOT NULL,
  result_json TEXT
);

CREATE TABLE IF NOT EXISTS saved_tests (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL,
  test_name TEXT NOT NULL,
  timer_minutes INTEGER NOT NULL,
  correct_mark DOUBLE PRECISION NOT NULL,
  wrong_mark DOUBLE PRECISION NOT NULL,
  is_subject_wise BOOLEAN NOT NULL DEFAULT FALSE,
  content_json TEXT NOT NULL,
  saved_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS saved_tests_saved_at ON saved_tests(saved_at);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
