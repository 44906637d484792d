package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	mode           TEXT NOT NULL,
	profile_json   TEXT NOT NULL,
	funnel_json    TEXT NOT NULL,
	config_json    TEXT,
	directive_json TEXT,
	active_version TEXT,
	created_at     TEXT NOT NULL,
	ended_at       TEXT
);

CREATE TABLE IF NOT EXISTS state_versions (
	version_id    TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	parent_id     TEXT,
	turn_index    INTEGER NOT NULL,
	state_json    TEXT NOT NULL,
	metrics_json  TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id),
	FOREIGN KEY (parent_id) REFERENCES state_versions(version_id)
);

CREATE INDEX IF NOT EXISTS idx_state_versions_session
ON state_versions(session_id, created_at);

CREATE TABLE IF NOT EXISTS turns (
	session_id    TEXT NOT NULL,
	idx           INTEGER NOT NULL,
	role          TEXT NOT NULL,
	text          TEXT NOT NULL,
	resistance    TEXT NOT NULL DEFAULT 'none',
	degraded      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (session_id, idx),
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	version_id    TEXT,
	turn_index    INTEGER NOT NULL,
	trigger_type  TEXT NOT NULL,
	signals_json  TEXT,
	category      TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);
`

// #endregion schema

// #region store-struct
// Store manages sessions, versioned behavior state and transcripts in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; sessions already serialize their own turns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region create-session
// CreateSession inserts the session row and its initial state version atomically.
func (s *Store) CreateSession(ctx context.Context, rec SessionRecord, initial BehaviorState) (StateRecord, error) {
	profileJSON, err := json.Marshal(rec.Profile)
	if err != nil {
		return StateRecord{}, fmt.Errorf("marshal profile: %w", err)
	}
	funnelJSON, err := json.Marshal(rec.Funnel)
	if err != nil {
		return StateRecord{}, fmt.Errorf("marshal funnel: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusActive
	}

	version := StateRecord{
		VersionID: uuid.New().String(),
		SessionID: rec.ID,
		TurnIndex: -1,
		State:     initial,
		CreatedAt: rec.CreatedAt,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StateRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, status, mode, profile_json, funnel_json, config_json, directive_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Status), rec.Mode, string(profileJSON), string(funnelJSON),
		nullIfEmpty(rec.ConfigJSON), nullIfEmpty(rec.DirectiveJSON),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("insert session: %w", err)
	}

	if err := insertVersion(ctx, tx, version); err != nil {
		return StateRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		return StateRecord{}, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

// #endregion create-session

// #region get-session
// GetSession loads a session row by ID.
func (s *Store) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	var status, profileJSON, funnelJSON, createdStr string
	var configJSON, directiveJSON, activeVersion, endedStr sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, mode, profile_json, funnel_json, config_json, directive_json,
		        active_version, created_at, ended_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&rec.ID, &status, &rec.Mode, &profileJSON, &funnelJSON, &configJSON,
		&directiveJSON, &activeVersion, &createdStr, &endedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}

	rec.Status = SessionStatus(status)
	if err := json.Unmarshal([]byte(profileJSON), &rec.Profile); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	if err := json.Unmarshal([]byte(funnelJSON), &rec.Funnel); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal funnel: %w", err)
	}
	rec.ConfigJSON = configJSON.String
	rec.DirectiveJSON = directiveJSON.String
	rec.ActiveVersion = activeVersion.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if endedStr.Valid {
		rec.EndedAt, _ = time.Parse(time.RFC3339Nano, endedStr.String)
	}
	return rec, nil
}

// #endregion get-session

// #region get-current
// GetCurrent reads the active state version of a session.
func (s *Store) GetCurrent(ctx context.Context, sessionID string) (StateRecord, error) {
	var versionID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT active_version FROM sessions WHERE id = ?`, sessionID,
	).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return StateRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return StateRecord{}, fmt.Errorf("get active: %w", err)
	}
	if !versionID.Valid {
		return StateRecord{}, fmt.Errorf("session %s has no active version: %w", sessionID, ErrNotFound)
	}
	return s.GetVersion(ctx, versionID.String)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific state version by ID.
func (s *Store) GetVersion(ctx context.Context, id string) (StateRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version_id, session_id, parent_id, turn_index, state_json, metrics_json, created_at
		 FROM state_versions WHERE version_id = ?`, id,
	)
	rec, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StateRecord{}, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return StateRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-version

// #region list-versions
// ListVersions returns the most recent state versions of a session, newest
// first. A limit <= 0 returns all of them.
func (s *Store) ListVersions(ctx context.Context, sessionID string, limit int) ([]StateRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT version_id, session_id, parent_id, turn_index, state_json, metrics_json, created_at
		 FROM state_versions WHERE session_id = ?
		 ORDER BY turn_index DESC, created_at DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []StateRecord
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions

// #region list-turns
// ListTurns returns the full transcript of a session in order.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]transcript.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, role, text, resistance, degraded, created_at
		 FROM turns WHERE session_id = ? ORDER BY idx ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []transcript.Turn
	for rows.Next() {
		var t transcript.Turn
		var role, resistance, createdStr string
		var degraded int
		if err := rows.Scan(&t.Index, &role, &t.Text, &resistance, &degraded, &createdStr); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = transcript.Role(role)
		t.Resistance = objection.Category(resistance)
		t.Degraded = degraded != 0
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// #endregion list-turns

// #region commit-turn
// TurnCommit is everything one conversational turn writes.
// State is nil when the turn left the behavior state unchanged.
type TurnCommit struct {
	SessionID  string
	State      *StateRecord // nil keeps the active version
	Turns      []transcript.Turn
	Provenance *logging.ProvenanceEntry
	Directive  *string // non-nil replaces directive_json; "" clears it
}

// CommitTurn appends turns, inserts the new state version, moves the active
// pointer and writes provenance in one transaction. Nothing is applied on error.
func (s *Store) CommitTurn(ctx context.Context, c TurnCommit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, c.SessionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", c.SessionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if SessionStatus(status) != StatusActive {
		return fmt.Errorf("session %s is %s: %w", c.SessionID, status, ErrInactive)
	}

	for _, t := range c.Turns {
		created := t.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		degraded := 0
		if t.Degraded {
			degraded = 1
		}
		resistance := t.Resistance
		if resistance == "" {
			resistance = objection.CategoryNone
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, idx, role, text, resistance, degraded, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.SessionID, t.Index, string(t.Role), t.Text, string(resistance), degraded,
			created.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert turn %d: %w", t.Index, err)
		}
	}

	if c.State != nil {
		if err := insertVersion(ctx, tx, *c.State); err != nil {
			return err
		}
	}

	if c.Directive != nil {
		_, err := tx.ExecContext(ctx,
			`UPDATE sessions SET directive_json = ? WHERE id = ?`, nullIfEmpty(*c.Directive), c.SessionID,
		)
		if err != nil {
			return fmt.Errorf("update directive: %w", err)
		}
	}

	if c.Provenance != nil {
		if err := logging.LogDecision(ctx, tx, *c.Provenance); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// #endregion commit-turn

// #region provenance
// ListProvenance returns a session's provenance rows in write order. An empty
// trigger returns every row.
func (s *Store) ListProvenance(ctx context.Context, sessionID, trigger string) ([]logging.ProvenanceEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, version_id, turn_index, trigger_type, signals_json, category, decision, reason, created_at
		 FROM provenance_log WHERE session_id = ? AND (? = '' OR trigger_type = ?)
		 ORDER BY id ASC`, sessionID, trigger, trigger,
	)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer rows.Close()

	var entries []logging.ProvenanceEntry
	for rows.Next() {
		var e logging.ProvenanceEntry
		var versionID, signalsJSON, category, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.SessionID, &versionID, &e.TurnIndex, &e.TriggerType,
			&signalsJSON, &category, &e.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.VersionID = versionID.String
		e.SignalsJSON = signalsJSON.String
		e.Category = category.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SessionSummary is one row of ListSessions.
type SessionSummary struct {
	ID        string
	Status    SessionStatus
	Tier      string
	Funnel    string
	Turns     int
	CreatedAt time.Time
}

// ListSessions returns the most recent sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.status, json_extract(s.profile_json, '$.tier'), json_extract(s.funnel_json, '$.category'),
		        (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id), s.created_at
		 FROM sessions s ORDER BY s.created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var status, createdStr string
		var tier, category sql.NullString
		if err := rows.Scan(&sum.ID, &status, &tier, &category, &sum.Turns, &createdStr); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.Status = SessionStatus(status)
		sum.Tier = tier.String
		sum.Funnel = category.String
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion provenance

// #region lifecycle
// EndSession marks a session ended. Ending twice is not an error.
func (s *Store) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = COALESCE(ended_at, ?) WHERE id = ?`,
		string(StatusEnded), at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateDirective replaces the serialized scenario directive; empty clears it.
func (s *Store) UpdateDirective(ctx context.Context, id, directiveJSON string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET directive_json = ? WHERE id = ?`, nullIfEmpty(directiveJSON), id,
	)
	if err != nil {
		return fmt.Errorf("update directive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReplaceProfile swaps the difficulty profile and funnel context and starts a
// fresh initial state version. Only valid before the first turn.
func (s *Store) ReplaceProfile(ctx context.Context, rec SessionRecord, initial BehaviorState) (StateRecord, error) {
	profileJSON, err := json.Marshal(rec.Profile)
	if err != nil {
		return StateRecord{}, fmt.Errorf("marshal profile: %w", err)
	}
	funnelJSON, err := json.Marshal(rec.Funnel)
	if err != nil {
		return StateRecord{}, fmt.Errorf("marshal funnel: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StateRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var turnCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns WHERE session_id = ?`, rec.ID).Scan(&turnCount); err != nil {
		return StateRecord{}, fmt.Errorf("count turns: %w", err)
	}
	if turnCount > 0 {
		return StateRecord{}, fmt.Errorf("session %s already has %d turns", rec.ID, turnCount)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET profile_json = ?, funnel_json = ? WHERE id = ?`,
		string(profileJSON), string(funnelJSON), rec.ID,
	)
	if err != nil {
		return StateRecord{}, fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return StateRecord{}, fmt.Errorf("session %s: %w", rec.ID, ErrNotFound)
	}

	version := StateRecord{
		VersionID: uuid.New().String(),
		ParentID:  rec.ActiveVersion,
		SessionID: rec.ID,
		TurnIndex: -1,
		State:     initial,
		CreatedAt: time.Now().UTC(),
	}
	if err := insertVersion(ctx, tx, version); err != nil {
		return StateRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return StateRecord{}, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

// #endregion lifecycle

// #region helpers
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (StateRecord, error) {
	var rec StateRecord
	var parentID, metricsJSON sql.NullString
	var stateJSON, createdStr string

	if err := row.Scan(&rec.VersionID, &rec.SessionID, &parentID, &rec.TurnIndex,
		&stateJSON, &metricsJSON, &createdStr); err != nil {
		return StateRecord{}, err
	}
	rec.ParentID = parentID.String
	rec.MetricsJSON = metricsJSON.String
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return StateRecord{}, fmt.Errorf("unmarshal state: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// insertVersion writes a state version and points the session at it.
func insertVersion(ctx context.Context, tx *sql.Tx, rec StateRecord) error {
	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO state_versions (version_id, session_id, parent_id, turn_index, state_json, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, rec.SessionID, nullIfEmpty(rec.ParentID), rec.TurnIndex,
		string(stateJSON), nullIfEmpty(rec.MetricsJSON), created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET active_version = ? WHERE id = ?`, rec.VersionID, rec.SessionID,
	)
	if err != nil {
		return fmt.Errorf("update active: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
