package orchestrator

// Default rejection thresholds.
const (
	DefaultTestRejectionLimit         = 3
	DefaultSecurityRejectionLimit     = 2
	DefaultDesignReviewRejectionLimit = 3
)

// RetryThresholds configures the three independent rejection limits.
// Zero values are replaced with the defaults.
type RetryThresholds struct {
	Test         int
	Security     int
	DesignReview int
}

func (t RetryThresholds) withDefaults() RetryThresholds {
	if t.Test <= 0 {
		t.Test = DefaultTestRejectionLimit
	}
	if t.Security <= 0 {
		t.Security = DefaultSecurityRejectionLimit
	}
	if t.DesignReview <= 0 {
		t.DesignReview = DefaultDesignReviewRejectionLimit
	}
	return t
}

// rejectionGate names which gate a backward routing came from, so the
// retry guard increments exactly one counter per rejection.
type rejectionGate int

const (
	gateNone rejectionGate = iota
	gateTest
	gateSecurity
	gateDesignReview
)

// retryGuard holds the three rejection counters. It converts repeated
// backward routing into an escalation (test/security) or an
// auto-resolution (design review). Synchronisation is provided by the
// Orchestrator-level mu.
type retryGuard struct {
	thresholds RetryThresholds

	testRejections         int
	securityRejections     int
	designReviewRejections int
}

func newRetryGuard(t RetryThresholds) retryGuard {
	return retryGuard{thresholds: t.withDefaults()}
}

// record increments the counter for the given gate and reports whether
// the gate's threshold has been reached.
func (g *retryGuard) record(gate rejectionGate) (count int, breached bool) {
	switch gate {
	case gateTest:
		g.testRejections++
		return g.testRejections, g.testRejections >= g.thresholds.Test
	case gateSecurity:
		g.securityRejections++
		return g.securityRejections, g.securityRejections >= g.thresholds.Security
	case gateDesignReview:
		g.designReviewRejections++
		return g.designReviewRejections, g.designReviewRejections >= g.thresholds.DesignReview
	default:
		return 0, false
	}
}

func (g *retryGuard) resetTest()         { g.testRejections = 0 }
func (g *retryGuard) resetSecurity()     { g.securityRejections = 0 }
func (g *retryGuard) resetDesignReview() { g.designReviewRejections = 0 }

func (g *retryGuard) resetAll() {
	g.resetTest()
	g.resetSecurity()
	g.resetDesignReview()
}
