package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-firing-tests
func TestLogFiring_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := FiringEntry{
		EpisodeID: 0,
		StepIndex: 3,
		Table:     "table",
		Fired:     true,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogFiring(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM firing_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var table string
	var fired int
	db.QueryRow("SELECT table_name, fired FROM firing_log").Scan(&table, &fired)
	if table != "table" {
		t.Errorf("expected table 'table', got %q", table)
	}
	if fired != 1 {
		t.Errorf("expected fired=1, got %d", fired)
	}
}

func TestLogFiring_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := FiringEntry{
		EpisodeID: 0,
		StepIndex: 0,
		Table:     "table",
		Fired:     false,
		Reason:    "condition_not_met",
	}

	before := time.Now().UTC()
	if err := LogFiring(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM firing_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogFiring_EmptyReasonStoredAsNull(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := FiringEntry{
		EpisodeID: 1,
		StepIndex: 2,
		Table:     "table",
		Fired:     true,
		Reason:    "",
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogFiring(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var reason sql.NullString
	db.QueryRow("SELECT reason FROM firing_log").Scan(&reason)
	if reason.Valid {
		t.Error("expected NULL reason for empty string")
	}
}

func TestLogFiring_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // closed connection forces an error

	entry := FiringEntry{EpisodeID: 0, StepIndex: 0, Table: "table"}
	if err := LogFiring(db, entry); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-firing-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if got := nullIfEmpty(""); got != nil {
		t.Errorf("expected nil for empty string, got %v", got)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if got := nullIfEmpty("hello"); got != "hello" {
		t.Errorf("expected 'hello', got %v", got)
	}
}

// #endregion null-if-empty-tests
