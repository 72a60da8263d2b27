package orchestrator

import "strings"

// Classifier turns free-text role notes into routing signals. The core
// decision function only consumes these booleans, so routing stays
// deterministic and unit-testable against structured inputs; the keyword
// heuristic is one swappable strategy, not inlined conditionals.
type Classifier interface {
	// DesignNeeded reports whether text asks for UI/design work.
	DesignNeeded(text string) bool
	// Failure reports whether text describes a test failure. Phrases
	// that affirm success must not count as failure language.
	Failure(text string) bool
	// Approval reports whether text reads as an approval.
	Approval(text string) bool
	// Rejection reports whether text reads as an explicit rejection.
	Rejection(text string) bool
	// UIElementMentions counts references to concrete UI elements,
	// used by the designer minimum-quality fallback.
	UIElementMentions(text string) int
}

// KeywordClassifier is the default Classifier: case-insensitive substring
// scans over configurable term lists.
type KeywordClassifier struct {
	DesignTerms    []string
	FailureTerms   []string
	SuccessPhrases []string // stripped before the failure scan
	ApprovalTerms  []string
	RejectionTerms []string
	UIElementTerms []string
}

// NewKeywordClassifier returns a classifier with the default term lists.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		DesignTerms: []string{
			"design", "ui", "user interface", "mockup", "wireframe",
			"layout", "frontend", "front-end", "screen", "page design",
			"visual", "style guide",
		},
		FailureTerms: []string{
			"fail", "failing", "broken", "error", "crash", "regression",
			"does not pass", "doesn't pass",
		},
		SuccessPhrases: []string{
			"no failures", "without failures", "0 failed", "zero failures",
			"all tests passed", "all tests pass", "no errors",
			"without errors", "0 errors",
		},
		ApprovalTerms: []string{
			"approved", "approve", "looks good", "lgtm", "ship it",
			"passed", "accepted", "ok to proceed",
		},
		RejectionTerms: []string{
			"rejected", "reject", "needs work", "not approved",
			"do not merge", "changes requested", "must fix",
		},
		UIElementTerms: []string{
			"button", "form", "input", "table", "modal", "dialog",
			"menu", "navbar", "card", "list", "header", "footer",
			"dropdown", "checkbox", "tab",
		},
	}
}

// DesignNeeded implements Classifier.
func (k *KeywordClassifier) DesignNeeded(text string) bool {
	return containsAny(text, k.DesignTerms)
}

// Failure implements Classifier. Success-affirming phrases are removed
// before scanning so "all tests passed, no failures" does not route
// backward.
func (k *KeywordClassifier) Failure(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range k.SuccessPhrases {
		lower = strings.ReplaceAll(lower, phrase, "")
	}
	for _, term := range k.FailureTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Approval implements Classifier.
func (k *KeywordClassifier) Approval(text string) bool {
	return containsAny(text, k.ApprovalTerms)
}

// Rejection implements Classifier.
func (k *KeywordClassifier) Rejection(text string) bool {
	return containsAny(text, k.RejectionTerms)
}

// UIElementMentions implements Classifier.
func (k *KeywordClassifier) UIElementMentions(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, term := range k.UIElementTerms {
		count += strings.Count(lower, term)
	}
	return count
}

func containsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
