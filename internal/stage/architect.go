package stage

import (
	"context"
	"fmt"

	"buildsmith/internal/build"
	"buildsmith/internal/llm"
	"buildsmith/internal/parse"
	"buildsmith/internal/prompt"
)

// Architect produces the build blueprint: tech stack, file structure, asset
// manifest, feature plan, and design specs.
type Architect struct {
	progress
	oracle llm.Completer
	opts   llm.Options
}

// NewArchitect creates an Architect.
func NewArchitect(oracle llm.Completer, opts llm.Options) *Architect {
	return &Architect{oracle: oracle, opts: opts}
}

type blueprint struct {
	TechStack       string            `json:"tech_stack"`
	Reasoning       string            `json:"reasoning"`
	FileStructure   []build.FileSpec  `json:"file_structure"`
	AssetManifest   []build.Asset     `json:"asset_manifest"`
	ProjectFeatures []build.Feature   `json:"project_features"`
	DesignSpecs     map[string]string `json:"design_specs"`
}

// Run plans the project and records the blueprint on the state.
func (a *Architect) Run(ctx context.Context, st *build.State) error {
	a.logf("designing blueprint")

	p, err := prompt.Architect(st.UserQuery, st.ReferenceURL)
	if err != nil {
		return fmt.Errorf("render architect prompt: %w", err)
	}

	raw, err := a.oracle.Complete(ctx, []llm.Message{{Role: "user", Content: p}}, a.opts)
	if err != nil {
		return fmt.Errorf("planning call: %w", err)
	}

	var bp blueprint
	if err := parse.Into(raw, &bp); err != nil {
		return fmt.Errorf("planning response: %w", err)
	}
	if err := vetBlueprint(&bp); err != nil {
		return err
	}

	st.TechStack = build.TechStack(bp.TechStack)
	st.FileStructure = bp.FileStructure
	st.AssetManifest = bp.AssetManifest
	st.ProjectFeatures = bp.ProjectFeatures
	st.DesignSpecs = bp.DesignSpecs
	st.Reasoning = bp.Reasoning

	a.logf("blueprint: stack=%s files=%d assets=%d features=%d",
		bp.TechStack, len(bp.FileStructure), len(bp.AssetManifest), len(bp.ProjectFeatures))
	return nil
}

// vetBlueprint enforces the structural minimum a blueprint must carry
// before approval checkpoints make sense.
func vetBlueprint(bp *blueprint) error {
	if bp.TechStack == "" {
		return fmt.Errorf("blueprint missing tech_stack")
	}
	known := false
	for _, s := range build.KnownStacks {
		if build.TechStack(bp.TechStack) == s {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("blueprint names unsupported tech stack %q", bp.TechStack)
	}
	if len(bp.FileStructure) == 0 {
		return fmt.Errorf("blueprint has empty file_structure")
	}
	for i, f := range bp.FileStructure {
		if f.Name == "" {
			return fmt.Errorf("blueprint file %d has no name", i)
		}
	}
	return nil
}
