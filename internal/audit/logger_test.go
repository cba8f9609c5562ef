package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlight/stationd/internal/station"
)

func readEntries(t *testing.T, dir string) []Entry {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	require.NoError(t, err)

	var out []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestLogActionAppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)

	id1 := l.LogAction("connect", "gridnet", nil, 250*time.Millisecond)
	id2 := l.LogAction("connect", "gridnet",
		fmt.Errorf("connect: %w", station.ErrTimeout), 10*time.Second)
	require.NoError(t, l.Close())

	entries := readEntries(t, dir)
	require.Len(t, entries, 2)

	assert.Equal(t, "connect", entries[0].Action)
	assert.Equal(t, "gridnet", entries[0].Target)
	assert.Equal(t, "SUCCESS", entries[0].Outcome)
	assert.Empty(t, entries[0].Code)
	assert.Equal(t, int64(250), entries[0].LatencyMs)

	assert.Equal(t, "ERROR", entries[1].Outcome)
	assert.Equal(t, "TIMEOUT", entries[1].Code)
	assert.Equal(t, int64(10000), entries[1].LatencyMs)

	assert.Equal(t, id1, entries[0].CorrelationID)
	assert.Equal(t, id2, entries[1].CorrelationID)
	assert.NotEqual(t, id1, id2)
	_, err = uuid.Parse(id1)
	assert.NoError(t, err)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{station.ErrInvalidState, "INVALID_STATE"},
		{station.ErrInvalidArgument, "INVALID_ARGUMENT"},
		{station.ErrTimeout, "TIMEOUT"},
		{station.ErrResourceExhausted, "RESOURCE_EXHAUSTED"},
		{station.ErrConnectFailed, "CONNECT_FAILED"},
		{fmt.Errorf("wrapped: %w", station.ErrConnectFailed), "CONNECT_FAILED"},
		{fmt.Errorf("vendor mystery"), "INTERNAL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, codeFor(tt.err), tt.err.Error())
	}
}

func TestLogAfterCloseDoesNotPanic(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l.LogAction("scan", "", nil, 0)
	require.NoError(t, l.Close())
}

func TestNewLoggerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	l, err := NewLogger(dir)
	require.NoError(t, err)
	defer l.Close()

	_, err = os.Stat(filepath.Join(dir, "audit.jsonl"))
	assert.NoError(t, err)
}
