package scout

import (
	"regexp"

	"buildsmith/internal/build"
)

var (
	getByIDRe   = regexp.MustCompile(`getElementById\(\s*["']([^"']+)["']\s*\)`)
	querySelRe  = regexp.MustCompile(`querySelector(?:All)?\(\s*["']([^"']+)["']\s*\)`)
	fetchRe     = regexp.MustCompile(`\bfetch\(\s*["']([^"']+)["']`)
	axiosRe     = regexp.MustCompile(`\baxios\.[a-z]+\(\s*["']([^"']+)["']`)
	importFromRe = regexp.MustCompile(`\bfrom\s+["']([^"']+)["']`)
	requireRe   = regexp.MustCompile(`\brequire\(\s*["']([^"']+)["']\s*\)`)
	funcDeclRe  = regexp.MustCompile(`\bfunction\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	classDeclRe = regexp.MustCompile(`\bclass\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
)

// ScriptScout extracts DOM selectors, endpoint calls, imports, and top-level
// declarations from JavaScript and TypeScript sources.
type ScriptScout struct{}

func (ScriptScout) Inspect(content string) build.WiringEntry {
	var entry build.WiringEntry

	// An unreadable script still yields whatever the regexes find; the
	// balance check flags it so the validator reports the file as broken.
	if !bracketsBalanced(content) {
		entry.SyntaxError = true
	}

	var referenced []string
	for _, m := range getByIDRe.FindAllStringSubmatch(content, -1) {
		referenced = append(referenced, "#"+m[1])
	}
	for _, m := range querySelRe.FindAllStringSubmatch(content, -1) {
		referenced = append(referenced, m[1])
	}

	var endpoints []string
	for _, m := range fetchRe.FindAllStringSubmatch(content, -1) {
		endpoints = append(endpoints, m[1])
	}
	for _, m := range axiosRe.FindAllStringSubmatch(content, -1) {
		endpoints = append(endpoints, m[1])
	}

	var imports []string
	for _, m := range importFromRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, m[1])
	}
	for _, m := range requireRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, m[1])
	}

	var defined []string
	for _, m := range funcDeclRe.FindAllStringSubmatch(content, -1) {
		defined = append(defined, m[1])
	}
	for _, m := range classDeclRe.FindAllStringSubmatch(content, -1) {
		defined = append(defined, m[1])
	}

	entry.DefinedIdentifiers = dedupe(defined)
	entry.ReferencedIdentifiers = dedupe(referenced)
	entry.CalledEndpoints = dedupe(endpoints)
	entry.Imports = dedupe(imports)
	return entry
}

// bracketsBalanced checks that braces, brackets, and parens nest correctly
// outside of string and comment contexts. A cheap stand-in for a full parse;
// only the definitely-broken case matters here.
func bracketsBalanced(content string) bool {
	var stack []byte
	inString := byte(0)
	inLineComment := false
	inBlockComment := false
	escaped := false

	for i := 0; i < len(content); i++ {
		c := content[i]

		switch {
		case inLineComment:
			if c == '\n' {
				inLineComment = false
			}
		case inBlockComment:
			if c == '*' && i+1 < len(content) && content[i+1] == '/' {
				inBlockComment = false
				i++
			}
		case inString != 0:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == inString:
				inString = 0
			case inString != '`' && c == '\n':
				inString = 0 // unterminated line string; give up on it
			}
		default:
			switch c {
			case '"', '\'', '`':
				inString = c
			case '/':
				if i+1 < len(content) {
					switch content[i+1] {
					case '/':
						inLineComment = true
						i++
					case '*':
						inBlockComment = true
						i++
					}
				}
			case '{', '[', '(':
				stack = append(stack, c)
			case '}', ']', ')':
				if len(stack) == 0 || stack[len(stack)-1] != opener(c) {
					return false
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	return len(stack) == 0
}

func opener(closer byte) byte {
	switch closer {
	case '}':
		return '{'
	case ']':
		return '['
	default:
		return '('
	}
}
