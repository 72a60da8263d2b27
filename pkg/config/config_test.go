package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Paths.DB != "relay.db" {
		t.Fatalf("default db path = %q", cfg.Paths.DB)
	}
	if cfg.Tmux.Session != "relay" {
		t.Fatalf("default tmux session = %q", cfg.Tmux.Session)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.toml")
	content := `
[thresholds]
test_rejections = 5

[designer]
min_elements = 7

[keywords]
failure = ["kaput"]

[paths]
db = "/var/lib/relay/relay.db"

[metrics]
listen = ":9615"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OrchestratorThresholds().Test != 5 {
		t.Fatalf("test threshold = %d, want 5", cfg.OrchestratorThresholds().Test)
	}
	if cfg.Floors().MinElements != 7 {
		t.Fatalf("min elements = %d, want 7", cfg.Floors().MinElements)
	}
	if cfg.Paths.DB != "/var/lib/relay/relay.db" {
		t.Fatalf("db path not overridden: %q", cfg.Paths.DB)
	}
	// Unset sections keep their defaults.
	if cfg.Paths.TasksDir != "tasks" {
		t.Fatalf("tasks dir default lost: %q", cfg.Paths.TasksDir)
	}
	if cfg.Metrics.Listen != ":9615" {
		t.Fatalf("metrics listen = %q", cfg.Metrics.Listen)
	}

	cls := cfg.Classifier()
	if !cls.Failure("the deploy went kaput") {
		t.Fatal("failure term override not applied")
	}
	if len(cls.ApprovalTerms) == 0 {
		t.Fatal("unset keyword lists must keep defaults")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[thresholds\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed TOML must error")
	}
}
