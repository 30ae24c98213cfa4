package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"tracked_items", "cycles"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	seedItem(t, s, "QmA", "QmA", 10)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tracked_items").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_ImportsLegacyPinTracker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	_, err = legacy.Exec(`
		CREATE TABLE pinTracker (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			fileID TEXT UNIQUE,
			ipfsAddress TEXT,
			fileAddress TEXT,
			bytes INTEGER,
			pinCount INTEGER DEFAULT 0,
			isPinned BOOLEAN DEFAULT 0,
			lastCheck INTEGER
		);
		INSERT INTO pinTracker (fileID, ipfsAddress, fileAddress, bytes, pinCount, isPinned, lastCheck)
		VALUES ('QmRoot/movie.mp4', 'QmRoot', 'QmMovie', 4096, 2, 1, 1700000000000),
		       ('QmLone', 'QmLone', NULL, -1, 0, 0, NULL);
	`)
	if err != nil {
		t.Fatalf("seed legacy table failed: %v", err)
	}
	legacy.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	item, err := s.GetItem(t.Context(), "QmRoot/movie.mp4")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.RootAddress != "QmRoot" || item.ResolvedAddress == nil || *item.ResolvedAddress != "QmMovie" {
		t.Errorf("unexpected addresses: %+v", item)
	}
	if item.Size() != 4096 || item.ReplicaCount != 2 || !item.IsPinnedLocally {
		t.Errorf("unexpected state: %+v", item)
	}
	if item.LastReplicationCheck == nil || item.LastReplicationCheck.UnixMilli() != 1700000000000 {
		t.Errorf("last check not imported: %+v", item.LastReplicationCheck)
	}

	lone, err := s.GetItem(t.Context(), "QmLone")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if lone.SizeBytes == nil || *lone.SizeBytes != -1 {
		t.Errorf("failure sentinel not imported: %+v", lone.SizeBytes)
	}
}

func TestOpen_LegacyImportNormalisesNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	_, err = legacy.Exec(`
		CREATE TABLE pinTracker (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			fileID TEXT UNIQUE,
			ipfsAddress TEXT,
			fileAddress TEXT,
			bytes INTEGER,
			pinCount INTEGER DEFAULT 0,
			isPinned BOOLEAN DEFAULT 0,
			lastCheck INTEGER
		)`)
	if err != nil {
		t.Fatalf("create legacy table failed: %v", err)
	}
	// The same file stored once decomposed and once composed.
	decomposed := "QmRoot/cafe\u0301.mp4"
	composed := "QmRoot/caf\u00e9.mp4"
	for i, id := range []string{decomposed, composed} {
		_, err := legacy.Exec(`
			INSERT INTO pinTracker (fileID, ipfsAddress, fileAddress, bytes, pinCount, isPinned)
			VALUES (?, 'QmRoot', 'QmCafe', 700, ?, 1)`, id, i+1)
		if err != nil {
			t.Fatalf("seed legacy row failed: %v", err)
		}
	}
	legacy.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	items, err := s.AllItems(t.Context())
	if err != nil {
		t.Fatalf("AllItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one row for both spellings, got %d: %+v", len(items), items)
	}
	if items[0].ItemID != composed {
		t.Errorf("item id = %q, want NFC %q", items[0].ItemID, composed)
	}
	if items[0].ReplicaCount != 1 {
		t.Errorf("first legacy row should win, got replicas %d", items[0].ReplicaCount)
	}

	pinned, err := s.QueryPinned(t.Context())
	if err != nil {
		t.Fatalf("QueryPinned failed: %v", err)
	}
	if len(pinned) != 1 {
		t.Errorf("budget would count %d pinned rows, want 1", len(pinned))
	}
}
