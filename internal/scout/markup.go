package scout

import (
	"regexp"

	"buildsmith/internal/build"
)

var (
	idAttrRe    = regexp.MustCompile(`(?i)\bid\s*=\s*["']([^"']+)["']`)
	classAttrRe = regexp.MustCompile(`(?i)\bclass\s*=\s*["']([^"']+)["']`)
	scriptSrcRe = regexp.MustCompile(`(?i)<script[^>]*\bsrc\s*=\s*["']([^"']+)["']`)
	linkHrefRe  = regexp.MustCompile(`(?i)<link[^>]*\bhref\s*=\s*["']([^"']+)["']`)
	inlineJSRe  = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	wsRe        = regexp.MustCompile(`\s+`)
)

// MarkupScout extracts DOM ids, classes, and external references from HTML.
// Inline script blocks are handed to the script scout so selector and
// endpoint usage inside them lands in the same entry.
type MarkupScout struct{}

func (MarkupScout) Inspect(content string) build.WiringEntry {
	var entry build.WiringEntry

	var defined []string
	for _, m := range idAttrRe.FindAllStringSubmatch(content, -1) {
		defined = append(defined, "#"+m[1])
	}
	for _, m := range classAttrRe.FindAllStringSubmatch(content, -1) {
		for _, cls := range wsRe.Split(m[1], -1) {
			if cls != "" {
				defined = append(defined, "."+cls)
			}
		}
	}

	var imports []string
	for _, m := range scriptSrcRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, m[1])
	}
	for _, m := range linkHrefRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, m[1])
	}

	// Inline scripts reference ids and call endpoints like any external file.
	var referenced, endpoints []string
	for _, m := range inlineJSRe.FindAllStringSubmatch(content, -1) {
		inner := ScriptScout{}.Inspect(m[1])
		referenced = append(referenced, inner.ReferencedIdentifiers...)
		endpoints = append(endpoints, inner.CalledEndpoints...)
		imports = append(imports, inner.Imports...)
	}

	entry.DefinedIdentifiers = dedupe(defined)
	entry.ReferencedIdentifiers = dedupe(referenced)
	entry.CalledEndpoints = dedupe(endpoints)
	entry.Imports = dedupe(imports)
	return entry
}
