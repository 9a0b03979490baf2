// Package state persists session snapshots as JSON files so a
// conversation can be resumed after a restart.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"assistant/pkg/proto"
)

// Snapshot is the durable view of one session.
type Snapshot struct {
	SessionID       string         `json:"session_id"`
	State           proto.State    `json:"state"`
	LastTimestamp   time.Time      `json:"last_timestamp"`
	PlanVersion     int            `json:"plan_version"`
	CurrentNode     string         `json:"current_node,omitempty"`
	CompletedNodes  []string       `json:"completed_nodes,omitempty"`
	ContextSnapshot map[string]any `json:"context_snapshot,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
}

// Store manages snapshot files under a base directory.
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir, creating it if needed.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save persists the snapshot for its session.
func (s *Store) Save(snap *Snapshot) error {
	if snap == nil || snap.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}
	if snap.State == "" {
		return fmt.Errorf("state cannot be empty")
	}
	if snap.LastTimestamp.IsZero() {
		snap.LastTimestamp = time.Now().UTC()
	}

	jsonData, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for session %s: %w", snap.SessionID, err)
	}

	filename := s.snapshotFilename(snap.SessionID)
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot for session %s: %w", snap.SessionID, err)
	}
	return nil
}

// Load retrieves the snapshot for a session. A missing file returns
// (nil, nil) so callers can treat it as a fresh session.
func (s *Store) Load(sessionID string) (*Snapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id cannot be empty")
	}

	filename := s.snapshotFilename(sessionID)
	fileData, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot for session %s: %w", sessionID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(fileData, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot for session %s: %w", sessionID, err)
	}
	return &snap, nil
}

// Delete removes the snapshot for a session. Missing files are not an
// error.
func (s *Store) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}

	filename := s.snapshotFilename(sessionID)
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot for session %s: %w", sessionID, err)
	}
	return nil
}

// ListSessions returns the session IDs that have a persisted snapshot.
func (s *Store) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "SESSION_") && strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, "SESSION_"), ".json"))
		}
	}
	return ids, nil
}

func (s *Store) snapshotFilename(sessionID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("SESSION_%s.json", sessionID))
}
