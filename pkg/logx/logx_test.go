package logx

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{
		component: component,
		logger:    log.New(&buf, "", 0),
	}, &buf
}

func TestLogLineFormat(t *testing.T) {
	logger, buf := captureLogger("plan")

	logger.Info("loaded %d templates", 5)

	line := buf.String()
	assert.Contains(t, line, "[plan]")
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "loaded 5 templates")
}

func TestDebugSuppressedByDefault(t *testing.T) {
	SetDebug(false, nil)
	logger, buf := captureLogger("mcp")

	logger.Debug("frame dropped")
	assert.Empty(t, buf.String())
}

func TestDebugDomains(t *testing.T) {
	SetDebug(true, []string{"mcp"})
	t.Cleanup(func() { SetDebug(false, nil) })

	assert.True(t, IsDebugEnabledFor("mcp"))
	assert.False(t, IsDebugEnabledFor("plan"))

	logger, buf := captureLogger("mcp")
	logger.Debug("correlated id %d", 7)
	assert.Contains(t, buf.String(), "correlated id 7")

	other, otherBuf := captureLogger("plan")
	other.Debug("should not appear")
	assert.Empty(t, otherBuf.String())
}

func TestDebugAllDomains(t *testing.T) {
	SetDebug(true, nil)
	t.Cleanup(func() { SetDebug(false, nil) })

	assert.True(t, IsDebugEnabledFor("anything"))
}

func TestWithComponent(t *testing.T) {
	logger, buf := captureLogger("gateway")

	child := logger.WithComponent("gateway-stats")
	assert.Equal(t, "gateway-stats", child.Component())

	child.Warn("slow invocation")
	assert.Contains(t, buf.String(), "[gateway-stats]")
}

func TestErrorfReturnsError(t *testing.T) {
	err := Errorf("setup failed: %d", 42)
	require.Error(t, err)
	assert.Equal(t, "setup failed: 42", err.Error())
}

func TestWrap(t *testing.T) {
	base := errors.New("disk full")

	wrapped := Wrap(base, "save snapshot")
	require.Error(t, wrapped)
	assert.True(t, strings.HasPrefix(wrapped.Error(), "save snapshot: "))
	assert.ErrorIs(t, wrapped, base)

	assert.NoError(t, Wrap(nil, "ignored"))
}
