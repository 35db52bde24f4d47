package stage

import (
	"context"
	"fmt"
	"strings"

	"buildsmith/internal/build"
	"buildsmith/internal/llm"
	"buildsmith/internal/parse"
	"buildsmith/internal/prompt"
)

// Gatekeeper classifies an incoming request before any resources are spent
// on it. Only homework-class requests continue; anything else terminates the
// run with a recorded refusal.
type Gatekeeper struct {
	progress
	oracle llm.Completer
	opts   llm.Options
}

// NewGatekeeper creates a Gatekeeper.
func NewGatekeeper(oracle llm.Completer, opts llm.Options) *Gatekeeper {
	return &Gatekeeper{oracle: oracle, opts: opts}
}

type gatekeeperVerdict struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	RefusalMessage string  `json:"refusal_message"`
}

// Run classifies the request and records the verdict on the state.
func (g *Gatekeeper) Run(ctx context.Context, st *build.State) error {
	g.logf("classifying request: %s", head(st.UserQuery, 80))

	p, err := prompt.Gatekeeper(st.UserQuery)
	if err != nil {
		return fmt.Errorf("render gatekeeper prompt: %w", err)
	}

	raw, err := g.oracle.Complete(ctx, []llm.Message{{Role: "user", Content: p}}, g.opts)
	if err != nil {
		return fmt.Errorf("classification call: %w", err)
	}

	var verdict gatekeeperVerdict
	if err := parse.Into(raw, &verdict); err != nil {
		return fmt.Errorf("classification response: %w", err)
	}

	cls, err := normalizeClassification(verdict.Classification)
	if err != nil {
		return err
	}
	st.Classification = cls
	g.logf("classification: %s (confidence %.2f)", cls, verdict.Confidence)

	if cls != build.ClassificationHomework {
		st.RefusalReason = verdict.RefusalMessage
		if st.RefusalReason == "" {
			st.RefusalReason = "request is out of scope for this generator"
		}
		st.IsComplete = true
		g.logf("request rejected: %s", st.RefusalReason)
	}
	return nil
}

func normalizeClassification(raw string) (build.Classification, error) {
	switch build.Classification(strings.ToLower(strings.TrimSpace(raw))) {
	case build.ClassificationHomework:
		return build.ClassificationHomework, nil
	case build.ClassificationProduction:
		return build.ClassificationProduction, nil
	case build.ClassificationMalicious:
		return build.ClassificationMalicious, nil
	default:
		return "", fmt.Errorf("unrecognized classification %q", raw)
	}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
