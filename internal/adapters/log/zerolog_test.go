package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bft-labs/mongoship/internal/ports"
)

func TestZerolog_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(zerolog.New(&buf))

	l.Warn("failed to write to store, retrying",
		ports.String("collection", "logs"),
		ports.Int("attempt", 2),
		ports.Duration("delay", 3*time.Second),
		ports.Err(errors.New("timeout")),
		ports.Any("filter", bson.D{{Key: "_id", Value: "a1"}}),
	)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}

	if got["level"] != "warn" || got["message"] != "failed to write to store, retrying" {
		t.Errorf("level/message = %v/%v", got["level"], got["message"])
	}
	if got["collection"] != "logs" || got["attempt"] != float64(2) || got["error"] != "timeout" {
		t.Errorf("fields = %v", got)
	}
	filter, ok := got["filter"].(map[string]any)
	if !ok || filter["_id"] != "a1" {
		t.Errorf("filter = %#v, want {_id: a1}", got["filter"])
	}
}

func TestZerolog_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("logged below level: %q", buf.String())
	}
	l.Error("shown")
	if buf.Len() == 0 {
		t.Error("error message was not logged")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNoopLogger(t *testing.T) {
	var l ports.Logger = NewNoopLogger()
	l.Info("discarded", ports.String("k", "v"))
}
