package stage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"buildsmith/internal/build"
	"buildsmith/internal/llm"
	"buildsmith/internal/parse"
	"buildsmith/internal/prompt"
)

// Per-file cap on source text sent to the dependency oracle.
const depSynthFileCap = 15000

// DepSynth derives dependency manifests (requirements.txt, package.json)
// from what the generated code actually uses. It is best-effort: a failed
// synthesis leaves the project as-is rather than failing the run.
type DepSynth struct {
	progress
	oracle llm.Completer
	opts   llm.Options
}

// NewDepSynth creates a DepSynth stage.
func NewDepSynth(oracle llm.Completer, opts llm.Options) *DepSynth {
	return &DepSynth{oracle: oracle, opts: opts}
}

// Run asks the oracle for manifest files and merges any credible results
// into the generated code.
func (d *DepSynth) Run(ctx context.Context, st *build.State) error {
	if len(st.GeneratedCode) == 0 {
		d.logf("no generated files, skipping dependency synthesis")
		return nil
	}

	p, err := prompt.DepSynth(string(st.EffectiveTechStack()), filesContext(st.GeneratedCode))
	if err != nil {
		return fmt.Errorf("render depsynth prompt: %w", err)
	}

	raw, err := d.oracle.Complete(ctx, []llm.Message{{Role: "user", Content: p}}, d.opts)
	if err != nil {
		// Non-fatal: ship without manifests rather than fail the build.
		d.logf("dependency synthesis unavailable: %v", err)
		return nil
	}

	result := parse.Object(raw, nil)
	if parse.Failed(result) {
		d.logf("dependency synthesis response unparsable, skipping")
		return nil
	}

	for _, name := range []string{"requirements.txt", "package.json"} {
		content, ok := result[name].(string)
		if !ok {
			continue
		}
		content = strings.TrimSpace(content)
		if len(content) < 5 {
			continue
		}
		st.GeneratedCode[name] = content
		d.logf("synthesized %s (%d bytes)", name, len(content))
	}
	return nil
}

// filesContext concatenates every generated file, capped per file, in
// deterministic order.
func filesContext(files map[string]string) string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		content := files[name]
		if len(content) > depSynthFileCap {
			content = content[:depSynthFileCap]
		}
		fmt.Fprintf(&sb, "--- START OF FILE: %s ---\n%s\n--- END OF FILE: %s ---\n\n", name, content, name)
	}
	return sb.String()
}
