package obs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestJSONLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod", "warn")
	log.Info("dropped")
	log.Warn("kept", "booking_id", "b1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["booking_id"] != "b1" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != slog.LevelDebug || ParseLevel("") != slog.LevelInfo {
		t.Fatalf("unexpected level mapping")
	}
}
