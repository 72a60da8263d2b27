// Package config loads the relay TOML configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"relay/pkg/orchestrator"
)

// Config is the full relay configuration. Every field has a working
// default; a missing config file yields Default().
type Config struct {
	Thresholds Thresholds `toml:"thresholds"`
	Designer   Designer   `toml:"designer"`
	Keywords   Keywords   `toml:"keywords"`
	Paths      Paths      `toml:"paths"`
	Tmux       Tmux       `toml:"tmux"`
	Metrics    Metrics    `toml:"metrics"`
}

// Thresholds configures the retry guard rejection limits.
type Thresholds struct {
	Test         int `toml:"test_rejections"`
	Security     int `toml:"security_rejections"`
	DesignReview int `toml:"design_review_rejections"`
}

// Designer configures the designer minimum-quality floors.
type Designer struct {
	MinElements   int `toml:"min_elements"`
	MinComponents int `toml:"min_components"`
}

// Keywords overrides the classifier term lists. Empty lists keep the
// built-in defaults.
type Keywords struct {
	Design     []string `toml:"design"`
	Failure    []string `toml:"failure"`
	Success    []string `toml:"success"`
	Approval   []string `toml:"approval"`
	Rejection  []string `toml:"rejection"`
	UIElements []string `toml:"ui_elements"`
}

// Paths configures on-disk locations.
type Paths struct {
	DB        string `toml:"db"`
	TasksDir  string `toml:"tasks_dir"`
	ReportDir string `toml:"report_dir"`
	Artifacts string `toml:"artifacts_dir"`
}

// Tmux configures the manager session integration.
type Tmux struct {
	Session string `toml:"session"`
	Pane    string `toml:"pane"`
}

// Metrics configures the Prometheus endpoint. An empty Listen disables it.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: Paths{
			DB:        "relay.db",
			TasksDir:  "tasks",
			ReportDir: "reports",
			Artifacts: "artifacts",
		},
		Tmux: Tmux{Session: "relay", Pane: "relay:0.1"},
	}
}

// Load reads a TOML config file and overlays it on the defaults. A
// missing file is not an error: callers get Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// OrchestratorThresholds converts to the orchestrator's threshold type.
func (c Config) OrchestratorThresholds() orchestrator.RetryThresholds {
	return orchestrator.RetryThresholds{
		Test:         c.Thresholds.Test,
		Security:     c.Thresholds.Security,
		DesignReview: c.Thresholds.DesignReview,
	}
}

// Floors converts to the orchestrator's designer floor type.
func (c Config) Floors() orchestrator.DesignFloors {
	return orchestrator.DesignFloors{
		MinElements:   c.Designer.MinElements,
		MinComponents: c.Designer.MinComponents,
	}
}

// Classifier builds the keyword classifier, applying any term-list
// overrides from the config.
func (c Config) Classifier() *orchestrator.KeywordClassifier {
	cls := orchestrator.NewKeywordClassifier()
	if len(c.Keywords.Design) > 0 {
		cls.DesignTerms = c.Keywords.Design
	}
	if len(c.Keywords.Failure) > 0 {
		cls.FailureTerms = c.Keywords.Failure
	}
	if len(c.Keywords.Success) > 0 {
		cls.SuccessPhrases = c.Keywords.Success
	}
	if len(c.Keywords.Approval) > 0 {
		cls.ApprovalTerms = c.Keywords.Approval
	}
	if len(c.Keywords.Rejection) > 0 {
		cls.RejectionTerms = c.Keywords.Rejection
	}
	if len(c.Keywords.UIElements) > 0 {
		cls.UIElementTerms = c.Keywords.UIElements
	}
	return cls
}
