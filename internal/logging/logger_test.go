// Package logging provides unit tests for the structured logger.
package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestLogger(minLevel LogLevel) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Logger{out: buf, minLevel: minLevel}, buf
}

func TestLogEntryShape(t *testing.T) {
	logger, buf := newTestLogger(LevelDebug)

	logger.Info("queue drained", map[string]interface{}{"delivered": 3})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry.Level != "INFO" {
		t.Errorf("level = %s, want INFO", entry.Level)
	}
	if entry.Message != "queue drained" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Context["delivered"].(float64) != 3 {
		t.Errorf("context delivered = %v, want 3", entry.Context["delivered"])
	}
}

func TestMinLevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(LevelWarn)

	logger.Debug("not emitted")
	logger.Info("not emitted either")
	if buf.Len() != 0 {
		t.Errorf("expected no output below WARN, got %q", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("expected WARN to be emitted")
	}
}

func TestErrorWithCode(t *testing.T) {
	logger, buf := newTestLogger(LevelDebug)

	logger.ErrorWithCode("send failed", "REMOTE_SEND_FAILED", bytes.ErrTooLarge,
		map[string]interface{}{"recipient": "a@b.com"})

	out := buf.String()
	if !strings.Contains(out, `"code":"REMOTE_SEND_FAILED"`) {
		t.Errorf("output missing code field: %s", out)
	}
	if !strings.Contains(out, `"error"`) {
		t.Errorf("output missing error field: %s", out)
	}
}

func TestContextMerging(t *testing.T) {
	logger, buf := newTestLogger(LevelDebug)

	logger.Info("merged",
		map[string]interface{}{"a": 1},
		map[string]interface{}{"b": 2})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entry.Context) != 2 {
		t.Errorf("context = %v, want two keys", entry.Context)
	}
}
