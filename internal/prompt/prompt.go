// Package prompt renders the instruction templates sent to the oracle.
// Templates are embedded; rendering fails fast on missing variables.
package prompt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
)

//go:embed templates/gatekeeper.md
var gatekeeperTmpl string

//go:embed templates/architect.md
var architectTmpl string

//go:embed templates/builder.md
var builderTmpl string

//go:embed templates/judge.md
var judgeTmpl string

//go:embed templates/fixer.md
var fixerTmpl string

//go:embed templates/depsynth.md
var depsynthTmpl string

// Vars holds template variables.
type Vars map[string]any

// Render executes a named template source with vars.
func Render(name, src string, vars Vars) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("execute template %q: %w", name, err)
	}
	return buf.String(), nil
}

// Gatekeeper renders the request-classification prompt.
func Gatekeeper(userQuery string) (string, error) {
	return Render("gatekeeper", gatekeeperTmpl, Vars{"user_query": userQuery})
}

// Architect renders the blueprint-planning prompt.
func Architect(userQuery, referenceURL string) (string, error) {
	return Render("architect", architectTmpl, Vars{
		"user_query":    userQuery,
		"reference_url": referenceURL,
	})
}

// BuilderInput collects everything the file-generation prompt needs.
type BuilderInput struct {
	FileName         string
	FileKind         string
	FilePrompt       string
	TechStack        string
	UserQuery        string
	UserRequirements string
	FeaturesJSON     string
	DesignSpecsJSON  string
	AssetsJSON       string
	StructureJSON    string
}

// Builder renders the per-file generation prompt.
func Builder(in BuilderInput) (string, error) {
	return Render("builder", builderTmpl, Vars{
		"file_name":         in.FileName,
		"file_kind":         in.FileKind,
		"file_prompt":       in.FilePrompt,
		"tech_stack":        in.TechStack,
		"user_query":        in.UserQuery,
		"user_requirements": in.UserRequirements,
		"features":          in.FeaturesJSON,
		"design_specs":      in.DesignSpecsJSON,
		"assets":            in.AssetsJSON,
		"structure":         in.StructureJSON,
	})
}

// Judge renders the cross-reference validation prompt. Only the wiring
// diagram travels to the oracle, never file contents.
func Judge(diagramJSON, featuresJSON, userQuery string) (string, error) {
	return Render("judge", judgeTmpl, Vars{
		"wiring_diagram": diagramJSON,
		"features":       featuresJSON,
		"user_query":     userQuery,
	})
}

// Fixer renders the single-file surgical fix prompt.
func Fixer(filename, code, issuesJSON, userQuery string) (string, error) {
	return Render("fixer", fixerTmpl, Vars{
		"file_name":  filename,
		"file_code":  code,
		"issues":     issuesJSON,
		"user_query": userQuery,
	})
}

// DepSynth renders the dependency-synthesis prompt.
func DepSynth(techStack, filesContext string) (string, error) {
	return Render("depsynth", depsynthTmpl, Vars{
		"tech_stack": techStack,
		"files":      filesContext,
	})
}

// JSON marshals v for embedding in a prompt, with indentation for oracle
// readability. Marshal failures return "{}" so a prompt degrades instead
// of crashing the stage.
func JSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
