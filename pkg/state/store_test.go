package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/proto"
)

func TestSaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	snap := &Snapshot{
		SessionID:      "session_abc12345",
		State:          proto.StateExecuting,
		PlanVersion:    2,
		CurrentNode:    "search_products",
		CompletedNodes: []string{"start", "gather_requirements"},
		ContextSnapshot: map[string]any{
			"category": "electronics",
		},
	}
	require.NoError(t, store.Save(snap))
	assert.False(t, snap.LastTimestamp.IsZero())

	loaded, err := store.Load("session_abc12345")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, proto.StateExecuting, loaded.State)
	assert.Equal(t, 2, loaded.PlanVersion)
	assert.Equal(t, []string{"start", "gather_requirements"}, loaded.CompletedNodes)
	assert.Equal(t, "electronics", loaded.ContextSnapshot["category"])
}

func TestLoadMissingSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	snap, err := store.Load("session_unknown")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveValidation(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Save(nil))
	assert.Error(t, store.Save(&Snapshot{State: proto.StateReady}))
	assert.Error(t, store.Save(&Snapshot{SessionID: "session_x"}))
}

func TestDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(&Snapshot{SessionID: "session_del", State: proto.StateReady}))
	require.NoError(t, store.Delete("session_del"))

	snap, err := store.Load("session_del")
	require.NoError(t, err)
	assert.Nil(t, snap)

	// Deleting again is fine.
	assert.NoError(t, store.Delete("session_del"))
}

func TestListSessions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(&Snapshot{SessionID: "session_a", State: proto.StateReady}))
	require.NoError(t, store.Save(&Snapshot{SessionID: "session_b", State: proto.StateAnalyzing}))

	ids, err := store.ListSessions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"session_a", "session_b"}, ids)
}

func TestNewStoreCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	_, err := NewStore(dir)
	assert.NoError(t, err)
}
