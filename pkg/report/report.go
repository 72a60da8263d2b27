// Package report renders the terminal markdown report for a completed
// unit of work.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"relay/pkg/protocol"
)

// Generator writes one markdown report per completed unit of work into
// Dir. ArtifactsDir, when set, is scanned for PNG screenshots to embed.
type Generator struct {
	Dir          string
	ArtifactsDir string

	// now is swappable for tests.
	now func() time.Time
}

// New creates a report generator writing into dir.
func New(dir, artifactsDir string) *Generator {
	return &Generator{Dir: dir, ArtifactsDir: artifactsDir, now: time.Now}
}

// Generate writes report-<context-id>.md. The file is created exclusively:
// a second call for the same context fails, which keeps report emission
// once-only per unit of work.
func (g *Generator) Generate(_ context.Context, hctx *protocol.HandoffContext) error {
	if hctx == nil {
		return protocol.ErrNoContext
	}
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(g.Dir, "report-"+hctx.ID+".md")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(g.render(hctx)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (g *Generator) render(hctx *protocol.HandoffContext) string {
	now := time.Now
	if g.now != nil {
		now = g.now
	}

	var sb strings.Builder
	title := hctx.OriginalRequest
	if hctx.Plan != nil && hctx.Plan.TaskName != "" {
		title = hctx.Plan.TaskName
	}
	fmt.Fprintf(&sb, "# Delivery report: %s\n\n", title)
	fmt.Fprintf(&sb, "- Context: `%s`\n", hctx.ID)
	fmt.Fprintf(&sb, "- Status: %s\n", hctx.Status)
	fmt.Fprintf(&sb, "- Attempts: %d\n", hctx.AttemptNumber)
	if hctx.SpecTaskRef != "" {
		fmt.Fprintf(&sb, "- Task: %s\n", hctx.SpecTaskRef)
	}
	fmt.Fprintf(&sb, "- Generated: %s\n", now().UTC().Format(time.RFC3339))

	writePlan(&sb, hctx.Plan)
	writeBuild(&sb, hctx.Build)
	writeTests(&sb, hctx.Test)
	writeSecurity(&sb, hctx.Security)
	writeFlow(&sb, hctx)

	if hctx.ReviewerNotes != "" {
		sb.WriteString("\n## Reviewer notes\n\n")
		sb.WriteString(hctx.ReviewerNotes)
		sb.WriteString("\n")
	}

	if shots := g.screenshots(); len(shots) > 0 {
		sb.WriteString("\n## Screenshots\n\n")
		for _, s := range shots {
			fmt.Fprintf(&sb, "![%s](%s)\n", filepath.Base(s), s)
		}
	}
	return sb.String()
}

func writePlan(sb *strings.Builder, plan *protocol.Plan) {
	if plan == nil {
		return
	}
	sb.WriteString("\n## Plan\n\n")
	if plan.Summary != "" {
		sb.WriteString(plan.Summary + "\n")
	}
	if plan.HasUI.IsSet() {
		fmt.Fprintf(sb, "\n- UI work: %v\n", plan.HasUI.True())
	}
	if plan.DesignToolRef != "" {
		fmt.Fprintf(sb, "- Design reference: %s\n", plan.DesignToolRef)
	}
}

func writeBuild(sb *strings.Builder, build *protocol.BuildOutput) {
	if build == nil {
		return
	}
	sb.WriteString("\n## Build\n\n")
	if build.RunCommand != "" {
		fmt.Fprintf(sb, "Run: `%s`\n\n", build.RunCommand)
	}
	if build.TargetURL != "" {
		fmt.Fprintf(sb, "Target: %s\n\n", build.TargetURL)
	}
	if len(build.ChangedFiles) > 0 {
		sb.WriteString("Changed files:\n\n")
		for _, f := range build.ChangedFiles {
			fmt.Fprintf(sb, "- `%s`\n", f)
		}
	}
}

func writeTests(sb *strings.Builder, test *protocol.TestOutcome) {
	if test == nil {
		return
	}
	sb.WriteString("\n## Tests\n\n")
	fmt.Fprintf(sb, "Passed: %s\n", flagWord(test.TestsPassed))
	if len(test.Results) > 0 {
		sb.WriteString("\n| Test | Result | Detail |\n|---|---|---|\n")
		for _, r := range test.Results {
			result := "fail"
			if r.Passed {
				result = "pass"
			}
			fmt.Fprintf(sb, "| %s | %s | %s |\n", r.Name, result, r.Detail)
		}
	}
}

func writeSecurity(sb *strings.Builder, sec *protocol.SecurityOutcome) {
	if sec == nil {
		return
	}
	sb.WriteString("\n## Security audit\n\n")
	fmt.Fprintf(sb, "Passed: %s\n", flagWord(sec.SecurityPassed))
	if sec.Recommendation != "" {
		fmt.Fprintf(sb, "Recommendation: %s\n", sec.Recommendation)
	}
	for _, v := range sec.Vulnerabilities {
		fmt.Fprintf(sb, "\n- **%s** (%s): %s\n", v.Title, v.Severity, v.Detail)
	}
}

// writeFlow renders the pipeline path the unit of work actually took,
// reconstructed from the failure history. A clean run shows the straight
// path; each recorded failure shows where the pipeline bounced back.
func writeFlow(sb *strings.Builder, hctx *protocol.HandoffContext) {
	sb.WriteString("\n## Flow\n\n```\n")
	if len(hctx.FailureHistory) == 0 {
		sb.WriteString("planner -> builder -> reviews -> completed\n")
	} else {
		for _, f := range hctx.FailureHistory {
			fmt.Fprintf(sb, "%s: %s", f.Role, f.Reason)
			if f.Details != "" {
				fmt.Fprintf(sb, " (%s)", f.Details)
			}
			sb.WriteString("\n")
		}
		fmt.Fprintf(sb, "final: %s\n", hctx.Status)
	}
	sb.WriteString("```\n")
}

// screenshots lists PNG files in the artifacts directory, sorted by name.
// A missing directory is fine.
func (g *Generator) screenshots() []string {
	if g.ArtifactsDir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(g.ArtifactsDir, "*.png"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func flagWord(f protocol.Flag) string {
	switch {
	case f.True():
		return "yes"
	case f.False():
		return "no"
	default:
		return "not recorded"
	}
}
