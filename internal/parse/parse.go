// Package parse extracts structured JSON from untrusted oracle responses.
// Oracles wrap JSON in markdown fences, prepend prose, and truncate output;
// every response passes through here before structural use.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparsable reports that no recovery strategy found a JSON object.
var ErrUnparsable = errors.New("no recoverable JSON object in response")

// FailureMarker is the key set on fallback structures when every recovery
// strategy failed. Callers that must react to total failure check for it.
const FailureMarker = "_parse_failed"

var (
	fenceRe      = regexp.MustCompile("(?i)```(?:json)?\\s*")
	flatObjectRe = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// Object recovers a JSON object from raw oracle output. It tries, in order:
// fence stripping plus outermost-span extraction, a balanced-brace walk from
// the first '{', and flat-object regex candidates. If everything fails it
// returns fallback with FailureMarker set, never an error for ugly input.
func Object(raw string, fallback map[string]any) map[string]any {
	if v, err := object(raw); err == nil {
		return v
	}
	out := make(map[string]any, len(fallback)+1)
	for k, v := range fallback {
		out[k] = v
	}
	out[FailureMarker] = true
	return out
}

// Failed reports whether v is a fallback structure from a failed recovery.
func Failed(v map[string]any) bool {
	_, ok := v[FailureMarker]
	return ok
}

// Into recovers a JSON object from raw and unmarshals it into dst.
// Unlike Object it surfaces failure as an error, for callers whose
// degraded path is their own.
func Into(raw string, dst any) error {
	v, err := object(raw)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("remarshal recovered object: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal recovered object: %w", err)
	}
	return nil
}

func object(raw string) (map[string]any, error) {
	// Strategy 1: strip fences and prose, take the outermost brace span.
	cleaned := fenceRe.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(cleaned)
	if span := outermostSpan(cleaned); span != "" {
		var v map[string]any
		if err := json.Unmarshal([]byte(span), &v); err == nil {
			return v, nil
		}
	}

	// Strategy 2: walk forward from the first '{' counting brace depth.
	if span := balancedSpan(cleaned); span != "" {
		var v map[string]any
		if err := json.Unmarshal([]byte(span), &v); err == nil {
			return v, nil
		}
	}

	// Strategy 3: try each flat object candidate.
	for _, cand := range flatObjectRe.FindAllString(cleaned, -1) {
		var v map[string]any
		if err := json.Unmarshal([]byte(cand), &v); err == nil {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w (%d bytes)", ErrUnparsable, len(raw))
}

// outermostSpan returns the text between the first '{' and the last '}'
// (or '[' and ']'), which handles prose before and after a complete body.
func outermostSpan(s string) string {
	open := strings.IndexByte(s, '{')
	close := strings.LastIndexByte(s, '}')
	if open >= 0 && close > open {
		return s[open : close+1]
	}
	return ""
}

// balancedSpan scans from the first '{' and returns the span at which brace
// depth first returns to zero. String contents are skipped so braces inside
// values don't corrupt the count.
func balancedSpan(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
