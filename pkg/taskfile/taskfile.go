// Package taskfile loads externally defined units of work from YAML
// files. A task file dropped into the watched tasks directory becomes a
// pre-populated handoff context for spec-driven (batch) execution.
package taskfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"relay/pkg/protocol"
)

// Task is one externally defined unit of work.
type Task struct {
	// ID defaults to the file name without extension.
	ID string `yaml:"id"`

	Title   string `yaml:"title"`
	Request string `yaml:"request"`

	// ParentTaskID marks the unit as nested inside another task.
	ParentTaskID string `yaml:"parent_task_id"`

	// Plan optionally seeds the planner output, letting a task skip
	// straight past plan-level questions like UI need.
	Plan *protocol.Plan `yaml:"plan"`
}

// Load reads and validates a single task file.
func Load(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var t Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", path, err)
	}
	if t.ID == "" {
		base := filepath.Base(path)
		t.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if t.Request == "" {
		return nil, fmt.Errorf("task file %s: request is required", path)
	}
	return &t, nil
}

// Context builds a pre-populated handoff context for this task.
func (t *Task) Context() *protocol.HandoffContext {
	hctx := protocol.NewContext(t.Request)
	hctx.SpecTaskRef = t.ID
	hctx.ParentTaskID = t.ParentTaskID
	hctx.Plan = t.Plan
	return hctx
}

// Discover lists task files (*.yaml, *.yml) in dir, sorted by name so
// batch execution order is stable.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tasks dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
