package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/unicode/norm"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Import rows from a legacy pinTracker table when one exists
const currentSchemaVersion = 1

// Store is the durable ledger of tracked items.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// The special path ":memory:" gives a ledger that lives as long as the Store.
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 copies rows from the pinTracker table used by earlier
// deployments. Rows already present in tracked_items win. Item ids are
// normalised to NFC the way ingestion writes them, so a legacy path and its
// newly ingested twin collapse into one row.
func migrateToV1(db *sql.DB) error {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'pinTracker'
	`).Scan(&n)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if n == 0 {
		return nil
	}

	legacy, err := readPinTracker(db)
	if err != nil {
		return fmt.Errorf("migrate to v1: read pinTracker: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, r := range legacy {
		_, err := tx.Exec(`
			INSERT INTO tracked_items
			(item_id, root_address, resolved_address, size_bytes, replica_count, is_pinned,
			 last_replication_check, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(item_id) DO NOTHING
		`, norm.NFC.String(r.fileID), r.root, r.resolved, r.bytes, r.pinCount, r.isPinned, r.lastCheck, now)
		if err != nil {
			return fmt.Errorf("migrate to v1: import %s: %w", r.fileID, err)
		}
	}
	return tx.Commit()
}

type pinTrackerRow struct {
	fileID    string
	root      string
	resolved  sql.NullString
	bytes     sql.NullInt64
	pinCount  int
	isPinned  int
	lastCheck sql.NullInt64
}

// readPinTracker loads the whole legacy table. The store holds a single
// connection, so rows must be closed before the import writes.
func readPinTracker(db *sql.DB) ([]pinTrackerRow, error) {
	rows, err := db.Query(`
		SELECT fileID, ipfsAddress, fileAddress, bytes, COALESCE(pinCount, 0),
		       CASE WHEN isPinned THEN 1 ELSE 0 END, lastCheck
		FROM pinTracker
		WHERE fileID IS NOT NULL AND ipfsAddress IS NOT NULL
		ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pinTrackerRow
	for rows.Next() {
		var r pinTrackerRow
		if err := rows.Scan(&r.fileID, &r.root, &r.resolved, &r.bytes, &r.pinCount, &r.isPinned, &r.lastCheck); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
