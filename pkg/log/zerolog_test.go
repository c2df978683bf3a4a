package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf)).Named("worker")

	z.Info("sent",
		String("scope", "shared"),
		Int("count", 3),
		Duration("delay", 500*time.Millisecond),
		Uint64("seq", 42),
		Time("paused_until", time.Unix(1700000000, 0).UTC()),
		Err(errors.New("boom")),
	)

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if got["component"] != "worker" {
		t.Errorf("component = %v, want worker", got["component"])
	}
	if got["scope"] != "shared" {
		t.Errorf("scope = %v, want shared", got["scope"])
	}
	if got["count"] != float64(3) {
		t.Errorf("count = %v, want 3", got["count"])
	}
	if got["seq"] != float64(42) {
		t.Errorf("seq = %v, want 42", got["seq"])
	}
	if _, ok := got["paused_until"].(string); !ok {
		t.Errorf("paused_until = %v, want a timestamp", got["paused_until"])
	}
	if got["error"] != "boom" {
		t.Errorf("error = %v, want boom", got["error"])
	}
	if got["message"] != "sent" {
		t.Errorf("message = %v, want sent", got["message"])
	}
}

func TestZerologAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapter(Options{Level: "warn", File: &buf})

	z.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %s", buf.String())
	}
	z.Warn("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestErr_NilLogsNull(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Warn("config watcher stopped", Err(nil))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	v, ok := got["error"]
	if !ok || v != nil {
		t.Errorf("error = %v (present %v), want null", v, ok)
	}
}

func TestAny_MaskedConfig(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Info("configuration", Any("config", map[string]any{"webhook_url": "https://discord.com/api/webhooks/1/****"}))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	cfg, _ := got["config"].(map[string]any)
	if cfg["webhook_url"] != "https://discord.com/api/webhooks/1/****" {
		t.Errorf("config = %v", got["config"])
	}
}
