// Package fix applies surgical corrections to generated files. Each pass
// handles every implicated file once; there is no per-file retry. Pass
// bounding (retry_count) belongs to the orchestrator.
package fix

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"buildsmith/internal/build"
	"buildsmith/internal/llm"
	"buildsmith/internal/parse"
	"buildsmith/internal/prompt"
)

// A returned fix shorter than this is assumed truncated and rejected.
const minFixLength = 50

// truncationMarkers are placeholder fragments oracles emit instead of
// complete files. Any of them rejects the fix outright.
var truncationMarkers = []string{
	"... (COMPLETE",
	"... (rest",
	"...(rest",
	"rest of file unchanged",
}

// Result is the outcome of one fix pass.
type Result struct {
	// UpdatedCode is a fresh map containing every original file plus any
	// accepted replacements. Keys never shrink.
	UpdatedCode map[string]string
	Fixes       []build.FixRecord
	// Unresolved lists files whose fix was rejected or whose fixer call
	// failed; they carry forward to the next validation pass.
	Unresolved []string
	// Dropped lists files referenced by issues but absent from the
	// generated code. Those are stale findings, logged and never fixed.
	Dropped []string
}

// Fixer drives one pass of single-file surgical fixes.
type Fixer struct {
	oracle   llm.Completer
	opts     llm.Options
	progress io.Writer
}

// New creates a Fixer using the given oracle configuration.
func New(oracle llm.Completer, opts llm.Options) *Fixer {
	return &Fixer{oracle: oracle, opts: opts}
}

// SetProgress sets a writer for live progress output.
func (f *Fixer) SetProgress(w io.Writer) {
	f.progress = w
}

func (f *Fixer) logf(format string, args ...any) {
	if f.progress != nil {
		fmt.Fprintf(f.progress, "  → "+format+"\n", args...)
	}
}

// Fix groups issues by file and submits each implicated file to the oracle
// independently: only that file's content and only that file's issues,
// never the whole project. The returned map replaces a file's content
// wholesale when its fix is accepted.
func (f *Fixer) Fix(ctx context.Context, issues []build.Issue, generated map[string]string, userQuery string) Result {
	res := Result{UpdatedCode: make(map[string]string, len(generated))}
	for name, content := range generated {
		res.UpdatedCode[name] = content
	}

	byFile := make(map[string][]build.Issue)
	for _, issue := range issues {
		if issue.File == "" {
			continue
		}
		if _, ok := generated[issue.File]; !ok {
			res.Dropped = append(res.Dropped, issue.File)
			continue
		}
		byFile[issue.File] = append(byFile[issue.File], issue)
	}
	res.Dropped = dedupe(res.Dropped)
	for _, name := range res.Dropped {
		f.logf("dropping issues for phantom file %s", name)
	}

	names := make([]string, 0, len(byFile))
	for name := range byFile {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		fileIssues := byFile[name]
		f.logf("fixing %s (%d/%d, %d issues)", name, i+1, len(names), len(fileIssues))

		fixed, summary, err := f.fixOne(ctx, name, generated[name], fileIssues, userQuery)
		if err != nil {
			f.logf("fix for %s rejected: %v", name, err)
			res.Unresolved = append(res.Unresolved, name)
			continue
		}

		res.UpdatedCode[name] = fixed
		res.Fixes = append(res.Fixes, build.FixRecord{
			File:        name,
			Summary:     summary,
			IssuesFixed: len(fileIssues),
		})
	}

	return res
}

// fixOne submits one file and its issues to the oracle and vets the result.
func (f *Fixer) fixOne(ctx context.Context, name, content string, issues []build.Issue, userQuery string) (string, string, error) {
	p, err := prompt.Fixer(name, content, prompt.JSON(issues), userQuery)
	if err != nil {
		return "", "", fmt.Errorf("render fixer prompt: %w", err)
	}

	raw, err := f.oracle.Complete(ctx, []llm.Message{
		{Role: "system", Content: "You are a JSON-only code fixer. Return ONLY valid JSON. Your first character must be '{' and last character must be '}'."},
		{Role: "user", Content: p},
	}, f.opts)
	if err != nil {
		return "", "", fmt.Errorf("fixer call: %w", err)
	}

	var out struct {
		FixedCode    string `json:"fixed_code"`
		FixesSummary string `json:"fixes_summary"`
	}
	if err := parse.Into(raw, &out); err != nil {
		return "", "", fmt.Errorf("fixer response: %w", err)
	}

	if err := vetFix(out.FixedCode); err != nil {
		return "", "", err
	}
	return out.FixedCode, out.FixesSummary, nil
}

// vetFix rejects fixes that would replace a file with garbage: empty
// output, suspiciously short output, or an explicit truncation marker.
func vetFix(fixed string) error {
	if strings.TrimSpace(fixed) == "" {
		return fmt.Errorf("empty fixed code")
	}
	if len(fixed) < minFixLength {
		return fmt.Errorf("fixed code suspiciously short (%d bytes)", len(fixed))
	}
	lower := strings.ToLower(fixed)
	for _, marker := range truncationMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return fmt.Errorf("fixed code contains truncation marker %q", marker)
		}
	}
	return nil
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
