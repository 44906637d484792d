package logging

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strings"
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
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE provenance_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id   TEXT NOT NULL,
		version_id   TEXT,
		turn_index   INTEGER NOT NULL,
		trigger_type TEXT NOT NULL,
		signals_json TEXT,
		category     TEXT,
		decision     TEXT NOT NULL,
		reason       TEXT,
		created_at   TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	rec := TurnRecord{SessionID: "s1", TurnIndex: 1, Signals: []string{"built_trust"}, Planned: "trust"}
	raw, _ := json.Marshal(rec)

	entry := ProvenanceEntry{
		SessionID:   "s1",
		VersionID:   "v1",
		TurnIndex:   1,
		TriggerType: "turn",
		SignalsJSON: string(raw),
		Category:    "trust",
		Decision:    "commit",
		Reason:      "signals applied",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(context.Background(), db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sessionID, decision, signals string
	var turn int
	db.QueryRow("SELECT session_id, turn_index, decision, signals_json FROM provenance_log").
		Scan(&sessionID, &turn, &decision, &signals)
	if sessionID != "s1" || turn != 1 {
		t.Errorf("unexpected row: session=%q turn=%d", sessionID, turn)
	}
	if decision != "commit" {
		t.Errorf("expected decision 'commit', got %q", decision)
	}

	var back TurnRecord
	if err := json.Unmarshal([]byte(signals), &back); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if back.Planned != "trust" || len(back.Signals) != 1 {
		t.Errorf("record did not round-trip: %+v", back)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	err := LogDecision(context.Background(), db, ProvenanceEntry{
		SessionID: "s2", TriggerType: "create", Decision: "commit",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM provenance_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	err := LogDecision(context.Background(), db, ProvenanceEntry{
		SessionID:   "s3",
		TriggerType: "turn",
		Decision:    "degraded",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var versionID, signalsJSON, category, reason sql.NullString
	db.QueryRow("SELECT version_id, signals_json, category, reason FROM provenance_log").Scan(
		&versionID, &signalsJSON, &category, &reason,
	)
	if versionID.Valid || signalsJSON.Valid || category.Valid || reason.Valid {
		t.Error("expected NULL for empty optional fields")
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	err := LogDecision(context.Background(), db, ProvenanceEntry{
		SessionID: "s4", TriggerType: "turn", Decision: "commit",
	})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region logger-tests
func TestNewLogger_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewLogger("warn", "json", &buf), "orchestrator")

	l.Info("hidden")
	l.Warn("generation failed", "session_id", "s1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &line); err != nil {
		t.Fatalf("expected one json line, got %q: %v", out, err)
	}
	if line["component"] != "orchestrator" || line["session_id"] != "s1" {
		t.Errorf("missing attributes: %v", line)
	}
}

func TestNewLogger_TextDefault(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("", "", &buf).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text handler output, got %q", buf.String())
	}
}

// #endregion logger-tests

// #region null-if-empty-tests
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("hello") != "hello" {
		t.Error("expected passthrough for non-empty string")
	}
}

// #endregion null-if-empty-tests
