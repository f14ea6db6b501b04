package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(levelName string, jsonLines bool) (*Logger, *bytes.Buffer) {
	l := New(&Config{Level: levelName, Component: "test", JSONFormat: jsonLines})
	buf := &bytes.Buffer{}
	l.out = buf
	return l, buf
}

// TestLevelThresholdFilters verifies events below the configured level
// are dropped
func TestLevelThresholdFilters(t *testing.T) {
	l, buf := newBufferLogger("WARN", true)

	l.Debug("dropped")
	l.Info("dropped too")
	l.Warn("kept")
	l.Error("kept as well")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 events past a WARN threshold, got %d: %q", len(lines), buf.String())
	}
}

// TestEventShape decodes a JSON event and checks the envelope
func TestEventShape(t *testing.T) {
	l, buf := newBufferLogger("INFO", true)

	l.WithTraceID("trace-1").Info("balance updated", "user_id", "u1", "amount", "50.00")

	var ev struct {
		Time      string                 `json:"time"`
		Level     string                 `json:"level"`
		Component string                 `json:"component"`
		TraceID   string                 `json:"trace_id"`
		Message   string                 `json:"message"`
		Fields    map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("Event is not valid JSON: %v", err)
	}

	if ev.Level != "INFO" || ev.Component != "test" || ev.TraceID != "trace-1" {
		t.Errorf("Unexpected envelope: %+v", ev)
	}
	if ev.Message != "balance updated" {
		t.Errorf("Unexpected message %q", ev.Message)
	}
	if ev.Fields["user_id"] != "u1" || ev.Fields["amount"] != "50.00" {
		t.Errorf("Unexpected fields: %v", ev.Fields)
	}
	if _, err := time.Parse(time.RFC3339Nano, ev.Time); err != nil {
		t.Errorf("Timestamp is not RFC3339: %v", err)
	}
}

// TestErrorValuesFlattened verifies error values in key/value args
// serialize as their messages
func TestErrorValuesFlattened(t *testing.T) {
	l, buf := newBufferLogger("INFO", true)

	l.Info("operation failed", "error", errors.New("boom"))

	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("Expected flattened error message, got %s", buf.String())
	}
}

// TestDerivedLoggersAreIsolated verifies With* copies do not leak
// fields or components back into their parent
func TestDerivedLoggersAreIsolated(t *testing.T) {
	parent, buf := newBufferLogger("INFO", true)

	child := parent.WithField("request_id", "r1").WithComponent("wallet")

	parent.Info("parent event")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("Parent logger picked up a derived field: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"component":"test"`) {
		t.Errorf("Parent component changed: %s", buf.String())
	}

	buf.Reset()
	child.Info("child event")
	if !strings.Contains(buf.String(), `"request_id":"r1"`) {
		t.Errorf("Derived field missing from child event: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"component":"wallet"`) {
		t.Errorf("Derived component missing from child event: %s", buf.String())
	}
}

// TestWithErrorNilIsNoop verifies WithError(nil) adds nothing
func TestWithErrorNilIsNoop(t *testing.T) {
	l, buf := newBufferLogger("INFO", true)

	l.WithError(nil).Info("all fine")

	if strings.Contains(buf.String(), `"fields"`) {
		t.Errorf("Expected no fields, got %s", buf.String())
	}
}

// TestTextFormat covers the non-JSON rendering used locally
func TestTextFormat(t *testing.T) {
	l, buf := newBufferLogger("INFO", false)

	l.Info("server started", "port", 8080)

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "INFO") || !strings.Contains(line, "[test]") || !strings.Contains(line, "port=8080") {
		t.Errorf("Unexpected text line: %q", line)
	}
}
