package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/gating/gatingtest"
)

func TestValidatePrintsOrder(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", "--rules", ""})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 8 || !strings.Contains(lines[0], "01-foundations") {
		t.Fatalf("output=%q", out.String())
	}
	if !strings.Contains(out.String(), "04-binders  Binder Protocols [safety gate]") {
		t.Fatalf("safety gate not marked: %q", out.String())
	}
}

func TestValidateReportsCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.yaml")
	doc := `
modules:
  - {slug: a, title: A, position: 1}
  - {slug: b, title: B, position: 2}
prerequisites:
  a: {required_modules: [b]}
  b: {required_modules: [a]}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "--rules", path})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("err=%v want cycle", err)
	}
}

func TestEvaluateRequiresUser(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"evaluate", "--user", "nope"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "invalid --user") {
		t.Fatalf("err=%v", err)
	}
}

func TestEvaluateCollectsVerdicts(t *testing.T) {
	cfg, err := gating.DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}
	store := gatingtest.NewMemStore()
	user := uuid.New()
	store.AddUser(user, time.Now().AddDate(0, 0, -30))
	engine, err := gating.NewEngine(store, cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	out, err := evaluate(context.Background(), engine, user, []string{"01-foundations", "04-binders"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(out) != 2 || out[0].Gating.IsLocked || !out[1].Gating.IsLocked || out[1].Safety.Safe {
		t.Fatalf("verdicts=%+v", out)
	}
	if len(out[1].Instructions) != 2 {
		t.Fatalf("instructions=%v", out[1].Instructions)
	}
}
