package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridlight/stationd/internal/station"
)

// Entry is a single audit record.
type Entry struct {
	Timestamp     time.Time `json:"ts"`
	CorrelationID string    `json:"correlationId"`
	Action        string    `json:"action"`
	Target        string    `json:"target,omitempty"`
	Outcome       string    `json:"outcome"`
	Code          string    `json:"code,omitempty"`
	LatencyMs     int64     `json:"latencyMs"`
}

// Logger appends audit records to a JSONL file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger opens (or creates) logDir/audit.jsonl for appending.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(logDir, "audit.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &Logger{file: file}, nil
}

// LogAction records one operation outcome. The error, if any, is reduced
// to its normalized code.
func (l *Logger) LogAction(action, target string, opErr error, latency time.Duration) string {
	entry := Entry{
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
		Action:        action,
		Target:        target,
		Outcome:       "SUCCESS",
		LatencyMs:     latency.Milliseconds(),
	}
	if opErr != nil {
		entry.Outcome = "ERROR"
		entry.Code = codeFor(opErr)
	}
	l.write(entry)
	return entry.CorrelationID
}

func (l *Logger) write(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	l.file.Write(append(data, '\n'))
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, station.ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, station.ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, station.ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, station.ErrResourceExhausted):
		return "RESOURCE_EXHAUSTED"
	case errors.Is(err, station.ErrConnectFailed):
		return "CONNECT_FAILED"
	default:
		return "INTERNAL"
	}
}
