//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pizza-order-bot/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithTraceID(context.Background(), "tr-1")
	ctx = WithUserID(ctx, "42")
	ctx = WithPlatform(ctx, "telegram")
	With(ctx, base).Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{"trace_id": "tr-1", "user_id": "42", "platform": "telegram", "message": "hello"} {
		if entry[k] != want {
			t.Errorf("%s = %v, want %s", k, entry[k], want)
		}
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("warn should be written")
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("short", false); got != "***" {
		t.Errorf("got %q", got)
	}
	if got := Redact("123456789012", false); got != "1234...12" {
		t.Errorf("got %q", got)
	}
	if got := Redact("Москва, Тверская 7", false); got != "Моск... 7" {
		t.Errorf("cyrillic redact = %q", got)
	}
	if got := Redact("secret", true); got != "secret" {
		t.Errorf("dev mode should not redact, got %q", got)
	}
}
