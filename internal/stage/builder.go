package stage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"buildsmith/internal/build"
	"buildsmith/internal/llm"
	"buildsmith/internal/prompt"
)

// Builder generates file contents from the approved blueprint. File
// generations are independent of each other, so they run in parallel up to
// a bounded limit; the shared code map is only ever updated whole-file
// under a lock.
type Builder struct {
	progress
	oracle      llm.Completer
	opts        llm.Options
	maxParallel int
}

// NewBuilder creates a Builder. maxParallel bounds concurrent oracle calls;
// values below 1 mean sequential.
func NewBuilder(oracle llm.Completer, opts llm.Options, maxParallel int) *Builder {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Builder{oracle: oracle, opts: opts, maxParallel: maxParallel}
}

// Run generates every file in the approved structure. Already-generated
// files are skipped, which is what makes re-entering this stage after a
// partial failure cheap. Any file-level failure fails the stage; files that
// completed stay in the map.
func (b *Builder) Run(ctx context.Context, st *build.State) error {
	files := st.EffectiveFileStructure()
	b.logf("generating %d files (parallelism %d)", len(files), b.maxParallel)

	if st.GeneratedCode == nil {
		st.GeneratedCode = make(map[string]string, len(files))
	}

	var todo []build.FileSpec
	for _, spec := range files {
		if _, done := st.GeneratedCode[spec.Name]; !done {
			todo = append(todo, spec)
		}
	}
	if len(todo) == 0 {
		b.logf("all files already generated")
		return nil
	}

	featuresJSON := prompt.JSON(st.EffectiveFeatures())
	designJSON := prompt.JSON(st.EffectiveDesignSpecs())
	assetsJSON := prompt.JSON(st.EffectiveAssetManifest())
	structureJSON := prompt.JSON(files)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, b.maxParallel)
		failures []string
	)

	for _, spec := range todo {
		spec := spec
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			code, err := b.generateOne(ctx, st, spec, featuresJSON, designJSON, assetsJSON, structureJSON)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logf("generate %s: %v", spec.Name, err)
				failures = append(failures, fmt.Sprintf("%s: %v", spec.Name, err))
				return
			}
			// Whole-file update under the lock: no partial writes observable.
			st.GeneratedCode[spec.Name] = code
			b.logf("generated %s (%d bytes)", spec.Name, len(code))
		}()
	}
	wg.Wait()

	if len(failures) > 0 {
		sort.Strings(failures)
		return fmt.Errorf("code generation failed for %d of %d files: %s",
			len(failures), len(todo), strings.Join(failures, "; "))
	}
	return nil
}

func (b *Builder) generateOne(ctx context.Context, st *build.State, spec build.FileSpec, featuresJSON, designJSON, assetsJSON, structureJSON string) (string, error) {
	p, err := prompt.Builder(prompt.BuilderInput{
		FileName:         spec.Name,
		FileKind:         spec.Kind,
		FilePrompt:       spec.Prompt,
		TechStack:        string(st.EffectiveTechStack()),
		UserQuery:        st.UserQuery,
		UserRequirements: st.UserRequirements,
		FeaturesJSON:     featuresJSON,
		DesignSpecsJSON:  designJSON,
		AssetsJSON:       assetsJSON,
		StructureJSON:    structureJSON,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	raw, err := b.oracle.Complete(ctx, []llm.Message{{Role: "user", Content: p}}, b.opts)
	if err != nil {
		return "", err
	}

	code := stripFences(raw)
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("oracle returned empty file")
	}
	return code, nil
}
