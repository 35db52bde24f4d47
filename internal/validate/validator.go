// Package validate cross-references the wiring diagram of a generated
// project. Local syntactic failures are detected directly; connection-level
// reconciliation is delegated to the oracle, which only ever sees the
// diagram, never raw source.
package validate

import (
	"context"
	"fmt"
	"io"
	"sort"

	"buildsmith/internal/build"
	"buildsmith/internal/llm"
	"buildsmith/internal/parse"
	"buildsmith/internal/prompt"
	"buildsmith/internal/scout"
)

// Context carries the minimal surround the judge sees alongside the diagram.
type Context struct {
	Features  []build.Feature
	UserQuery string
}

// Result is the outcome of one validation pass.
type Result struct {
	Issues []build.Issue
	// Degraded is true when the oracle was unavailable and cross-reference
	// checking was skipped. The single WARNING issue recording the outage
	// does not count against Passed.
	Degraded bool
}

// Passed reports whether the pipeline should treat validation as clean.
// A degraded pass carries exactly one outage warning; real findings always
// fail.
func (r Result) Passed() bool {
	if r.Degraded {
		return len(r.Issues) == 1
	}
	return len(r.Issues) == 0
}

// Validator runs the two-phase integration check.
type Validator struct {
	oracle   llm.Completer
	opts     llm.Options
	progress io.Writer
}

// New creates a Validator using the given oracle configuration.
func New(oracle llm.Completer, opts llm.Options) *Validator {
	return &Validator{oracle: oracle, opts: opts}
}

// SetProgress sets a writer for live progress output.
func (v *Validator) SetProgress(w io.Writer) {
	v.progress = w
}

func (v *Validator) logf(format string, args ...any) {
	if v.progress != nil {
		fmt.Fprintf(v.progress, "  → "+format+"\n", args...)
	}
}

// Validate runs the local phase and, when there is anything to
// cross-reference, the oracle phase.
func (v *Validator) Validate(ctx context.Context, diagram map[string]build.WiringEntry, generated map[string]string, vctx Context) Result {
	var res Result

	// Local phase: scout-detected parse failures become CRITICAL issues
	// without any oracle involvement.
	for _, name := range sortedKeys(diagram) {
		if diagram[name].SyntaxError {
			v.logf("scout flagged syntax error in %s", name)
			res.Issues = append(res.Issues, build.Issue{
				Category:     "SyntaxError",
				Severity:     build.SeverityCritical,
				File:         name,
				Description:  "local parser could not read this file; likely a syntax error",
				SuggestedFix: "fix the syntax errors in this file",
			})
		}
	}

	// A single standalone markup file has no connections to reconcile.
	// This is a genuine short-circuit: the oracle has nothing to check.
	if singleMarkupOnly(generated) {
		v.logf("single markup file, skipping cross-reference phase")
		return res
	}

	issues, err := v.crossReference(ctx, diagram, vctx)
	if err != nil {
		// A validator outage must never block the pipeline. Degrade to a
		// pass carrying one warning that records the failure.
		v.logf("oracle unavailable, degrading validation: %v", err)
		res.Degraded = true
		res.Issues = append(res.Issues, build.Issue{
			Category:    "ValidatorUnavailable",
			Severity:    build.SeverityWarning,
			File:        "",
			Description: fmt.Sprintf("cross-reference validation skipped: %v", err),
		})
		return res
	}

	v.logf("judge reported %d integration issues", len(issues))
	res.Issues = append(res.Issues, issues...)
	return res
}

// crossReference submits the diagram to the oracle and parses its verdict.
// The oracle's structural claims are relayed verbatim; the validator does
// not re-derive DOM logic.
func (v *Validator) crossReference(ctx context.Context, diagram map[string]build.WiringEntry, vctx Context) ([]build.Issue, error) {
	p, err := prompt.Judge(prompt.JSON(diagram), prompt.JSON(vctx.Features), vctx.UserQuery)
	if err != nil {
		return nil, fmt.Errorf("render judge prompt: %w", err)
	}

	raw, err := v.oracle.Complete(ctx, []llm.Message{{Role: "user", Content: p}}, v.opts)
	if err != nil {
		return nil, fmt.Errorf("judge call: %w", err)
	}

	var verdict struct {
		Issues []build.Issue `json:"issues"`
	}
	if err := parse.Into(raw, &verdict); err != nil {
		// An unparsable verdict is an outage, not a pass with zero issues.
		return nil, fmt.Errorf("judge verdict: %w", err)
	}

	for i := range verdict.Issues {
		if verdict.Issues[i].Severity != build.SeverityCritical {
			verdict.Issues[i].Severity = build.SeverityWarning
		}
	}
	return verdict.Issues, nil
}

// singleMarkupOnly reports whether the artifact set is exactly one markup
// file with no script or route files alongside it.
func singleMarkupOnly(generated map[string]string) bool {
	if len(generated) != 1 {
		return false
	}
	for name := range generated {
		if scout.KindOf(name) != scout.KindMarkup {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]build.WiringEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
