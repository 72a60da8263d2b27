package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"relay/pkg/protocol"
)

// RoleAgent produces the completion payload for one role acting on the
// live handoff context. Implementations run the persona however they
// like; the runner only needs the structured result back.
type RoleAgent interface {
	Complete(ctx context.Context, role protocol.Role, hctx *protocol.HandoffContext) (*protocol.HandoffPayload, error)
}

// ClaudeAgent runs each role as a `claude -p` subprocess and parses the
// handoff payload out of its output.
type ClaudeAgent struct {
	Model   string
	Workdir string
}

// roleInstructions maps each working role to its persona prompt. Review
// roles answer with a review outcome; producing roles answer with their
// output section.
var roleInstructions = map[protocol.Role]string{
	protocol.RolePlanner:       "You are the planner. Produce a plan for the request: summary, whether the work has UI, whether it needs design. Respond with JSON {\"plan\": {...}}.",
	protocol.RoleDesigner:      "You are the designer. Produce design specs for the plan. Respond with JSON {\"design\": {...}} including specsRef, expectedElementCount and createdComponents.",
	protocol.RoleDesignReview:  "You are the design reviewer. Approve or reject the design. Respond with JSON {\"designReview\": {\"approved\": ..., \"notes\": ...}}.",
	protocol.RoleBuilder:       "You are the builder. Implement the plan and design. Respond with JSON {\"build\": {...}} listing changedFiles and a runCommand.",
	protocol.RoleCodeReview:    "You are the code reviewer. Approve or reject the build. Respond with JSON {\"codeReview\": {\"approved\": ..., \"notes\": ...}}.",
	protocol.RoleTester:        "You are the tester. Run the tests. Respond with JSON {\"testOutcome\": {\"testsPassed\": ..., \"results\": [...]}}.",
	protocol.RoleTestReview:    "You are the test reviewer. Approve or reject the test outcome. Respond with JSON {\"testReview\": {\"approved\": ..., \"notes\": ...}}.",
	protocol.RoleSecurityAudit: "You are the security auditor. Audit the build. Respond with JSON {\"security\": {\"securityPassed\": ..., \"recommendation\": ..., \"vulnerabilities\": [...]}}.",
	protocol.RoleFinalReview:   "You are the final reviewer. Approve or reject the delivery. Respond with JSON {\"finalReview\": {\"approved\": ..., \"notes\": ...}}.",
}

// Complete spawns `claude -p` with the role prompt and the serialized
// context, waits, and extracts the payload from the output.
func (a *ClaudeAgent) Complete(ctx context.Context, role protocol.Role, hctx *protocol.HandoffContext) (*protocol.HandoffPayload, error) {
	instructions, ok := roleInstructions[role]
	if !ok {
		return nil, fmt.Errorf("no persona for role %s", role)
	}

	ctxJSON, err := json.MarshalIndent(hctx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	prompt := instructions + "\n\nCurrent handoff context:\n" + string(ctxJSON)

	cmd := exec.CommandContext(ctx, "claude", "-p", prompt, "--model", a.Model)
	cmd.Dir = a.Workdir

	var outBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &outBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s agent: %w: %s", role, err, truncate(outBuf.String(), 500))
	}
	return ExtractPayload(outBuf.String())
}

// ExtractPayload pulls the handoff payload JSON out of agent output. The
// model wraps its answer in prose and sometimes a fenced code block, so
// scan for the outermost JSON object instead of parsing the whole text.
func ExtractPayload(output string) (*protocol.HandoffPayload, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in agent output: %s", truncate(output, 200))
	}

	var p protocol.HandoffPayload
	if err := json.Unmarshal([]byte(output[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("parse agent payload: %w", err)
	}
	return &p, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
