package logger

import (
	"strings"
	"testing"
)

func TestScrub(t *testing.T) {
	out := scrub([]any{
		"module_slug", "04-binders",
		"sub_metrics", map[string]any{"bowel": 7},
		"user_id", "8b1d3c9e-0000-0000-0000-000000000000",
		"Authorization", "Bearer abc",
	})
	if len(out) != 8 {
		t.Fatalf("len=%d want 8", len(out))
	}
	if out[1] != "04-binders" {
		t.Fatalf("module_slug should pass through, got %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("sub_metrics should be redacted, got %v", out[3])
	}
	if s, _ := out[5].(string); !strings.HasPrefix(s, "hash:") {
		t.Fatalf("user_id should be hashed, got %v", out[5])
	}
	if out[7] != "[REDACTED]" {
		t.Fatalf("authorization should be redacted, got %v", out[7])
	}
}

func TestScrubOddLength(t *testing.T) {
	out := scrub([]any{"score", 82.5, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestScrubNestedAndStable(t *testing.T) {
	out := scrub([]any{"payload", map[string]any{"Email": "a@b.c", "score": 70}})
	m, ok := out[1].(map[string]any)
	if !ok || m["Email"] != redacted || m["score"] != 70 {
		t.Fatalf("nested map not scrubbed: %#v", out[1])
	}

	a := scrub([]any{"user_id", "u-1"})[1]
	b := scrub([]any{"user_id", "u-1"})[1]
	if a != b {
		t.Fatalf("hash should be stable: %v vs %v", a, b)
	}
	if s, _ := a.(string); len(s) != len("hash:")+12 {
		t.Fatalf("hash=%q", a)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "test", "development"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("component", "test").Debug("ok")
	}
}
