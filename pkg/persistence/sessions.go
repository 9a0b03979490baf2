package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assistant/pkg/convo"
	"assistant/pkg/proto"
)

// ErrSessionNotFound indicates the session does not exist in storage.
var ErrSessionNotFound = errors.New("session not found")

// SessionRecord is a row of the sessions table.
type SessionRecord struct {
	SessionID   string
	State       proto.State
	Intent      proto.Intent
	PlanVersion int
	EndReason   string
	StartedAt   time.Time
	UpdatedAt   time.Time
}

// MessageRecord is a row of the messages table.
type MessageRecord struct {
	SessionID string
	MessageID string
	Role      convo.Role
	Content   string
	CreatedAt time.Time
}

// SessionStore performs database operations for sessions and their
// transcripts.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore wraps a database connection.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// UpsertSession inserts or updates the session row.
func (s *SessionStore) UpsertSession(rec *SessionRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}
	now := time.Now().UTC()
	if rec.StartedAt.IsZero() {
		rec.StartedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO sessions (session_id, state, intent, plan_version, end_reason, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			intent = excluded.intent,
			plan_version = excluded.plan_version,
			end_reason = excluded.end_reason,
			updated_at = excluded.updated_at`,
		rec.SessionID, string(rec.State), string(rec.Intent),
		rec.PlanVersion, rec.EndReason, rec.StartedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", rec.SessionID, err)
	}
	return nil
}

// GetSession loads one session row.
func (s *SessionStore) GetSession(sessionID string) (*SessionRecord, error) {
	var rec SessionRecord
	var state, intent string
	err := s.db.QueryRow(`
		SELECT session_id, state, intent, plan_version, end_reason, started_at, updated_at
		FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&rec.SessionID, &state, &intent, &rec.PlanVersion, &rec.EndReason, &rec.StartedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	rec.State = proto.State(state)
	rec.Intent = proto.Intent(intent)
	return &rec, nil
}

// RecordMessage appends one transcript message.
func (s *SessionStore) RecordMessage(sessionID string, msg convo.Message) error {
	_, err := s.db.Exec(`
		INSERT INTO messages (session_id, message_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, msg.ID, string(msg.Role), msg.Content, msg.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record message for session %s: %w", sessionID, err)
	}
	return nil
}

// ListMessages returns a session's transcript in insertion order.
func (s *SessionStore) ListMessages(sessionID string) ([]MessageRecord, error) {
	rows, err := s.db.Query(`
		SELECT session_id, message_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var records []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		var role string
		if err := rows.Scan(&rec.SessionID, &rec.MessageID, &role, &rec.Content, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		rec.Role = convo.Role(role)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveContextSnapshot stores the working context as JSON, tagged with
// the plan version it belongs to.
func (s *SessionStore) SaveContextSnapshot(sessionID string, planVersion int, snapshot map[string]any) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal context snapshot: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO context_snapshots (session_id, plan_version, snapshot, created_at)
		VALUES (?, ?, ?, ?)`,
		sessionID, planVersion, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save context snapshot for session %s: %w", sessionID, err)
	}
	return nil
}

// LatestContextSnapshot returns the most recent context snapshot for a
// session, or nil when none exists.
func (s *SessionStore) LatestContextSnapshot(sessionID string) (map[string]any, error) {
	var data string
	err := s.db.QueryRow(`
		SELECT snapshot FROM context_snapshots
		WHERE session_id = ? ORDER BY id DESC LIMIT 1`, sessionID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load context snapshot for session %s: %w", sessionID, err)
	}

	var snapshot map[string]any
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context snapshot: %w", err)
	}
	return snapshot, nil
}

// ListRecentSessions returns up to limit sessions, newest first.
func (s *SessionStore) ListRecentSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT session_id, state, intent, plan_version, end_reason, started_at, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var state, intent string
		if err := rows.Scan(&rec.SessionID, &state, &intent, &rec.PlanVersion, &rec.EndReason, &rec.StartedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		rec.State = proto.State(state)
		rec.Intent = proto.Intent(intent)
		records = append(records, rec)
	}
	return records, rows.Err()
}
