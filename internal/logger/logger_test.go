package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		id := NewRequestID()
		if len(id) != 8 {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct ids out of 50", len(seen))
	}
}

func TestRequestIDContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context gave %q", got)
	}
	ctx := WithRequestID(context.Background(), "abc12345")
	if got := RequestIDFromContext(ctx); got != "abc12345" {
		t.Errorf("got %q", got)
	}
}

func TestLogBodyTruncates(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(prev)

	LogRequest(l, []byte(strings.Repeat("x", 1500)))
	out := buf.String()
	if !strings.Contains(out, `"truncated":true`) {
		t.Errorf("long body not marked truncated: %s", out)
	}
	if strings.Count(out, "x") != 1000 {
		t.Errorf("logged %d body bytes, want 1000", strings.Count(out, "x"))
	}

	buf.Reset()
	LogResponse(l, nil)
	if buf.Len() != 0 {
		t.Errorf("empty body logged: %s", buf.String())
	}
}
