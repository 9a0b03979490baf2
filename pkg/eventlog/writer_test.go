package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadEvents(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteEvent(&Event{
		Kind:       KindAgentInvocation,
		SessionID:  "s1",
		TraceID:    "t1",
		AgentType:  "BUY",
		Status:     "success",
		DurationMS: 12,
		Data:       map[string]any{"request_size": 120},
	}))
	require.NoError(t, w.WriteEvent(&Event{
		Kind:      KindTurn,
		SessionID: "s1",
		Status:    "completed",
	}))

	path := w.CurrentLogFile()
	require.NotEmpty(t, path)

	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, KindAgentInvocation, events[0].Kind)
	assert.Equal(t, "BUY", events[0].AgentType)
	assert.Equal(t, int64(12), events[0].DurationMS)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, KindTurn, events[1].Kind)
}

func TestTimestampPreserved(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir)
	require.NoError(t, err)
	defer w.Close()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, w.WriteEvent(&Event{Kind: KindSession, Timestamp: ts}))

	events, err := ReadEvents(w.CurrentLogFile())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(ts))
}

func TestListLogFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.WriteEvent(&Event{Kind: KindSession}))
	require.NoError(t, w.Close())

	files, err := ListLogFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
