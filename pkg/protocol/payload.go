package protocol

// Plan is the planner's output. The UI-need flags are deliberately
// redundant: different planner prompts have emitted different field names
// over time, and routing accepts any of them.
type Plan struct {
	Summary       string `json:"summary,omitempty" yaml:"summary,omitempty"`
	ProjectName   string `json:"projectName,omitempty" yaml:"project_name,omitempty"`
	TaskName      string `json:"taskName,omitempty" yaml:"task_name,omitempty"`
	NeedsDesign   Flag   `json:"needsDesign,omitempty" yaml:"needs_design,omitempty"`
	HasUI         Flag   `json:"hasUI,omitempty" yaml:"has_ui,omitempty"`
	UseDesignTool Flag   `json:"useDesignTool,omitempty" yaml:"use_design_tool,omitempty"`
	DesignToolRef string `json:"designToolRef,omitempty" yaml:"design_tool_ref,omitempty"`
	Notes         string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// DesignOutput is the designer's output.
type DesignOutput struct {
	SpecsRef             string   `json:"specsRef,omitempty"`
	ExpectedElementCount int      `json:"expectedElementCount,omitempty"`
	CreatedComponents    []string `json:"createdComponents,omitempty"`
	Notes                string   `json:"notes,omitempty"`
}

// BuildOutput is the builder's output.
type BuildOutput struct {
	ChangedFiles []string `json:"changedFiles,omitempty"`
	RunCommand   string   `json:"runCommand,omitempty"`
	TargetURL    string   `json:"targetURL,omitempty"`
	// NeedsDesignRevision routes back to the designer mid-build instead
	// of continuing to code review.
	NeedsDesignRevision Flag   `json:"needsDesignRevision,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

// TestResult is one structured test outcome.
type TestResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// TestOutcome is the tester's output.
type TestOutcome struct {
	TestsPassed         Flag         `json:"testsPassed,omitempty"`
	Results             []TestResult `json:"results,omitempty"`
	NeedsDesignRevision Flag         `json:"needsDesignRevision,omitempty"`
	Notes               string       `json:"notes,omitempty"`
}

// Vulnerability is one finding from the security audit.
type Vulnerability struct {
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
}

// SecurityOutcome is the security auditor's output.
type SecurityOutcome struct {
	SecurityPassed  Flag            `json:"securityPassed,omitempty"`
	Recommendation  string          `json:"recommendation,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// ReviewOutcome is a gate's approve/reject decision. Approval is accepted
// from several shapes: the explicit flag, a status string, or free-text
// phrasing in Notes.
type ReviewOutcome struct {
	Approved Flag   `json:"approved,omitempty"`
	Status   string `json:"status,omitempty"`
	Notes    string `json:"notes,omitempty"`
	// Replan lets a reviewer force a full re-plan instead of a local
	// rejection.
	Replan Flag `json:"replan,omitempty"`
}

// HandoffPayload is the structured message a role emits on completing its
// phase. Only the sections relevant to the emitting role are populated;
// non-nil sections are merged into the live HandoffContext.
type HandoffPayload struct {
	Plan         *Plan            `json:"plan,omitempty"`
	Design       *DesignOutput    `json:"design,omitempty"`
	Build        *BuildOutput     `json:"build,omitempty"`
	Test         *TestOutcome     `json:"testOutcome,omitempty"`
	Security     *SecurityOutcome `json:"security,omitempty"`
	DesignReview *ReviewOutcome   `json:"designReview,omitempty"`
	CodeReview   *ReviewOutcome   `json:"codeReview,omitempty"`
	TestReview   *ReviewOutcome   `json:"testReview,omitempty"`
	FinalReview  *ReviewOutcome   `json:"finalReview,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}
