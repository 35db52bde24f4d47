// Package stage implements the oracle-driven pipeline stages:
// classification, planning, code generation, and dependency synthesis.
// Each stage mutates only the state fields it owns; failures are returned
// to the orchestrator, which converts them into terminal state.
package stage

import (
	"fmt"
	"io"
	"strings"
)

// progress is the shared live-output helper each stage embeds.
type progress struct {
	w io.Writer
}

// SetProgress sets a writer for live progress output; nil is silent.
func (p *progress) SetProgress(w io.Writer) {
	p.w = w
}

func (p *progress) logf(format string, args ...any) {
	if p.w != nil {
		fmt.Fprintf(p.w, "  → "+format+"\n", args...)
	}
}

// stripFences removes a leading and trailing markdown code fence from oracle
// output. Oracles add them no matter how firmly told not to.
func stripFences(code string) string {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "```") {
		return code
	}
	lines := strings.Split(code, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
