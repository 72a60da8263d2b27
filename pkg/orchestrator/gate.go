package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"relay/pkg/protocol"
)

// PromptGate asks a human on an interactive terminal whether to continue
// after a retry threshold is breached. The answer is read synchronously;
// the orchestrator call stays open until the human responds.
type PromptGate struct {
	In  io.Reader
	Out io.Writer
}

// Approve implements InterventionGate. Any answer starting with "y"
// (case-insensitive) approves; everything else, including a read error
// on a closed stdin, denies.
func (g *PromptGate) Approve(_ context.Context, reason string, hctx *protocol.HandoffContext) (bool, error) {
	fmt.Fprintln(g.Out, protocol.FormatEscalation(protocol.EscStatus, hctx.ID, reason, ""))
	fmt.Fprint(g.Out, "resume at builder? [y/N] ")

	line, err := bufio.NewReader(g.In).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return strings.HasPrefix(answer, "y"), nil
}
