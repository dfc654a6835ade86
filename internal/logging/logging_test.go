package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestWithContextAddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	log := New("test", "info", "json")
	log.SetOutput(&buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithUserID(ctx, 42)
	ctx = WithRole(ctx, "admin")
	log.WithContext(ctx).Info("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["trace_id"] != "trace-1" {
		t.Errorf("trace_id = %v", entry["trace_id"])
	}
	if entry["user_id"] != float64(42) {
		t.Errorf("user_id = %v", entry["user_id"])
	}
	if entry["role"] != "admin" {
		t.Errorf("role = %v", entry["role"])
	}
	if entry["service"] != "test" {
		t.Errorf("service = %v", entry["service"])
	}
}

func TestLogRequestLevels(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warning"},
		{http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		log := New("test", "debug", "json")
		log.SetOutput(&buf)
		log.LogRequest(context.Background(), http.MethodGet, "/students", tc.status, 5*time.Millisecond)

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if entry["level"] != tc.level {
			t.Errorf("status %d: level = %v, want %s", tc.status, entry["level"], tc.level)
		}
	}
}

func TestContextHelpersZeroValues(t *testing.T) {
	ctx := context.Background()
	if GetTraceID(ctx) != "" || GetUserID(ctx) != 0 || GetRole(ctx) != "" {
		t.Fatalf("expected empty values from bare context")
	}
	if NewTraceID() == NewTraceID() {
		t.Fatalf("trace ids should differ")
	}
}
