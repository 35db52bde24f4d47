// Package scout extracts structural "wiring" metadata from generated files:
// identifiers, routes, endpoint calls, and imports. Scouts are stateless and
// never fail; a file the scout cannot read becomes an entry with
// SyntaxError set, because the pipeline makes forward-progress decisions
// from partial diagrams.
package scout

import (
	"path/filepath"
	"sort"
	"strings"

	"buildsmith/internal/build"
)

// Kind identifies which scout handles a file.
type Kind string

const (
	KindMarkup  Kind = "markup"
	KindScript  Kind = "script"
	KindRouted  Kind = "routed" // route-backed backend language
	KindUnknown Kind = "unknown"
)

// Scout inspects one file's content and returns its wiring entry.
type Scout interface {
	Inspect(content string) build.WiringEntry
}

// KindOf infers the scout kind from a filename.
func KindOf(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return KindMarkup
	case ".js", ".ts", ".jsx", ".tsx", ".mjs":
		return KindScript
	case ".py":
		return KindRouted
	default:
		return KindUnknown
	}
}

// ForKind returns the scout for a kind, or nil for unknown kinds.
func ForKind(kind Kind) Scout {
	switch kind {
	case KindMarkup:
		return MarkupScout{}
	case KindScript:
		return ScriptScout{}
	case KindRouted:
		return RoutedScout{}
	default:
		return nil
	}
}

// BuildDiagram runs the appropriate scout over every file and aggregates the
// results. Files of unknown kind get an empty entry, never an error.
func BuildDiagram(files map[string]string) map[string]build.WiringEntry {
	diagram := make(map[string]build.WiringEntry, len(files))
	for name, content := range files {
		s := ForKind(KindOf(name))
		if s == nil {
			diagram[name] = build.WiringEntry{}
			continue
		}
		diagram[name] = s.Inspect(content)
	}
	return diagram
}

// dedupe sorts a set of strings and removes duplicates and empties.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
