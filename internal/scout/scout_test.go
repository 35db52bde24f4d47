package scout

import (
	"reflect"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		file string
		want Kind
	}{
		{"index.html", KindMarkup},
		{"About.HTM", KindMarkup},
		{"app.js", KindScript},
		{"game.ts", KindScript},
		{"App.jsx", KindScript},
		{"server.py", KindRouted},
		{"style.css", KindUnknown},
		{"README.md", KindUnknown},
	}
	for _, c := range cases {
		if got := KindOf(c.file); got != c.want {
			t.Errorf("KindOf(%q) = %q, want %q", c.file, got, c.want)
		}
	}
}

func TestMarkupScout_IdsClassesAndImports(t *testing.T) {
	html := `<html><head>
		<link rel="stylesheet" href="style.css">
		<script src="app.js"></script>
	</head><body>
		<div id="board" class="grid dark"></div>
		<button id="reset" class="grid"></button>
	</body></html>`

	entry := MarkupScout{}.Inspect(html)

	wantDefined := []string{"#board", "#reset", ".dark", ".grid"}
	if !reflect.DeepEqual(entry.DefinedIdentifiers, wantDefined) {
		t.Errorf("defined = %v, want %v", entry.DefinedIdentifiers, wantDefined)
	}
	wantImports := []string{"app.js", "style.css"}
	if !reflect.DeepEqual(entry.Imports, wantImports) {
		t.Errorf("imports = %v, want %v", entry.Imports, wantImports)
	}
}

func TestMarkupScout_InlineScript(t *testing.T) {
	html := `<body><div id="score"></div>
	<script>
		document.getElementById("score").textContent = "0";
		fetch("/api/highscores");
	</script></body>`

	entry := MarkupScout{}.Inspect(html)

	if !reflect.DeepEqual(entry.ReferencedIdentifiers, []string{"#score"}) {
		t.Errorf("referenced = %v", entry.ReferencedIdentifiers)
	}
	if !reflect.DeepEqual(entry.CalledEndpoints, []string{"/api/highscores"}) {
		t.Errorf("endpoints = %v", entry.CalledEndpoints)
	}
}

func TestScriptScout_SelectorsEndpointsDecls(t *testing.T) {
	js := `import { render } from "./render.js";
	const helpers = require("./helpers");

	function startGame() {
		const el = document.getElementById("board");
		document.querySelector(".status");
		fetch("/api/state");
		axios.post("/api/moves", move);
	}
	class Engine {}`

	entry := ScriptScout{}.Inspect(js)

	if entry.SyntaxError {
		t.Fatal("valid script flagged as broken")
	}
	if !reflect.DeepEqual(entry.DefinedIdentifiers, []string{"Engine", "startGame"}) {
		t.Errorf("defined = %v", entry.DefinedIdentifiers)
	}
	if !reflect.DeepEqual(entry.ReferencedIdentifiers, []string{"#board", ".status"}) {
		t.Errorf("referenced = %v", entry.ReferencedIdentifiers)
	}
	if !reflect.DeepEqual(entry.CalledEndpoints, []string{"/api/moves", "/api/state"}) {
		t.Errorf("endpoints = %v", entry.CalledEndpoints)
	}
	if !reflect.DeepEqual(entry.Imports, []string{"./helpers", "./render.js"}) {
		t.Errorf("imports = %v", entry.Imports)
	}
}

func TestScriptScout_UnbalancedSetsFlagNotPanic(t *testing.T) {
	entry := ScriptScout{}.Inspect(`function broken() { if (x) { `)
	if !entry.SyntaxError {
		t.Error("expected syntax_error on unbalanced braces")
	}
}

func TestScriptScout_BracesInStringsAndComments(t *testing.T) {
	js := `// a comment with { unmatched
	/* and another } here */
	const s = "template { literal }";
	const t = 'closer only }';
	function fine() {}`

	entry := ScriptScout{}.Inspect(js)
	if entry.SyntaxError {
		t.Error("braces inside strings and comments must not count")
	}
}

func TestRoutedScout_ImportsDefsRoutes(t *testing.T) {
	py := `import flask
from flask.helpers import make_response
import os.path

@app.route('/api/items')
def list_items():
    return []

@app.post('/api/items')
async def create_item():
    return {}

class ItemStore:
    pass`

	entry := RoutedScout{}.Inspect(py)

	if entry.SyntaxError {
		t.Fatal("valid python flagged as broken")
	}
	if !reflect.DeepEqual(entry.Imports, []string{"flask", "os"}) {
		t.Errorf("imports = %v", entry.Imports)
	}
	if !reflect.DeepEqual(entry.DefinedIdentifiers, []string{"ItemStore", "create_item", "list_items"}) {
		t.Errorf("defined = %v", entry.DefinedIdentifiers)
	}
	if !reflect.DeepEqual(entry.DeclaredRoutes, []string{"/api/items"}) {
		t.Errorf("routes = %v", entry.DeclaredRoutes)
	}
}

func TestRoutedScout_MissingColonSetsFlag(t *testing.T) {
	entry := RoutedScout{}.Inspect("def broken()\n    pass\n")
	if !entry.SyntaxError {
		t.Error("expected syntax_error for def without colon")
	}
}

func TestRoutedScout_MultilineSignatureNotFlagged(t *testing.T) {
	py := "def long_signature(\n    a,\n    b,\n):\n    return a\n"
	entry := RoutedScout{}.Inspect(py)
	if entry.SyntaxError {
		t.Error("multi-line signature should not be flagged")
	}
}

func TestBuildDiagram_EveryFileGetsEntry(t *testing.T) {
	files := map[string]string{
		"index.html": `<div id="a"></div>`,
		"app.js":     `function go() {}`,
		"style.css":  `.a { color: red }`,
	}
	diagram := BuildDiagram(files)

	if len(diagram) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(diagram))
	}
	if _, ok := diagram["style.css"]; !ok {
		t.Error("unknown-kind file must still get an entry")
	}
	if got := diagram["style.css"]; got.SyntaxError || len(got.DefinedIdentifiers) != 0 {
		t.Errorf("unknown-kind entry should be empty, got %+v", got)
	}
	if !reflect.DeepEqual(diagram["index.html"].DefinedIdentifiers, []string{"#a"}) {
		t.Errorf("html entry = %+v", diagram["index.html"])
	}
}
