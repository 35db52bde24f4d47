package scout

import (
	"regexp"
	"strings"

	"buildsmith/internal/build"
)

var (
	pyImportRe   = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][\w.]*)`)
	pyFromRe     = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][\w.]*)\s+import`)
	pyDefRe      = regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`)
	pyClassRe    = regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_]\w*)`)
	pyRouteRe    = regexp.MustCompile(`(?m)^\s*@\w+\.(?:route|get|post|put|delete|patch)\(\s*["']([^"']+)["']`)
	pyBlockRe    = regexp.MustCompile(`^\s*(?:async\s+)?(?:def|class)\s+\w+.*$`)
)

// RoutedScout extracts imports, declarations, and handler routes from a
// route-backed backend source file (Python with Flask/FastAPI decorators).
type RoutedScout struct{}

func (RoutedScout) Inspect(content string) build.WiringEntry {
	var entry build.WiringEntry

	if pySyntaxBroken(content) {
		entry.SyntaxError = true
	}

	var imports []string
	for _, m := range pyImportRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, rootModule(m[1]))
	}
	for _, m := range pyFromRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, rootModule(m[1]))
	}

	var defined []string
	for _, m := range pyDefRe.FindAllStringSubmatch(content, -1) {
		defined = append(defined, m[1])
	}
	for _, m := range pyClassRe.FindAllStringSubmatch(content, -1) {
		defined = append(defined, m[1])
	}

	var routes []string
	for _, m := range pyRouteRe.FindAllStringSubmatch(content, -1) {
		routes = append(routes, m[1])
	}

	entry.Imports = dedupe(imports)
	entry.DefinedIdentifiers = dedupe(defined)
	entry.DeclaredRoutes = dedupe(routes)
	return entry
}

// rootModule reduces a dotted import path to its top-level package,
// which is what the dependency manifest cares about.
func rootModule(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}

// pySyntaxBroken applies cheap structural checks: block-opening lines must
// end with a colon, and brackets must balance. It cannot catch everything a
// real parser would, but a positive result is reliable.
func pySyntaxBroken(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if !pyBlockRe.MatchString(line) {
			continue
		}
		code := line
		if i := strings.Index(code, "#"); i >= 0 {
			code = code[:i]
		}
		code = strings.TrimSpace(code)
		// Multi-line signatures end with an open paren or comma instead.
		if code == "" || strings.HasSuffix(code, ":") ||
			strings.HasSuffix(code, "(") || strings.HasSuffix(code, ",") ||
			strings.HasSuffix(code, "\\") {
			continue
		}
		return true
	}
	return !pyBracketsBalanced(content)
}

func pyBracketsBalanced(content string) bool {
	var depth int
	inString := byte(0)
	escaped := false
	for i := 0; i < len(content); i++ {
		c := content[i]
		if inString != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == inString:
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '#':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
