// Package orchestrator drives a build task through the pipeline: classify,
// plan, the two approval checkpoints, generate, the validate/fix loop,
// dependency synthesis, and packaging. It owns all state persistence; stages
// mutate an in-memory State the orchestrator loads and saves around each
// suspension point.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"buildsmith/internal/archive"
	"buildsmith/internal/build"
	"buildsmith/internal/checkpoint"
	"buildsmith/internal/config"
	"buildsmith/internal/db"
	"buildsmith/internal/fix"
	"buildsmith/internal/llm"
	"buildsmith/internal/scout"
	"buildsmith/internal/stage"
	"buildsmith/internal/store"
	"buildsmith/internal/validate"
)

// Stage identifies a pipeline phase, used in events and progress output.
type Stage string

const (
	StageClassify            Stage = "classify"
	StagePlan                Stage = "plan"
	StageFeatureCheckpoint   Stage = "feature_checkpoint"
	StageTechStackCheckpoint Stage = "techstack_checkpoint"
	StageGenerate            Stage = "generate"
	StageValidate            Stage = "validate"
	StageFix                 Stage = "fix"
	StageDepSynth            Stage = "depsynth"
	StagePackage             Stage = "package"
	StageDone                Stage = "done"
)

// Observer receives a state snapshot at each stage transition. The snapshot
// is a deep copy; observers may retain it.
type Observer func(stg Stage, st *build.State)

// Orchestrator composes the pipeline stages over a task store.
type Orchestrator struct {
	store    store.Store
	events   *db.DB
	cfg      *config.Config
	observer Observer
	progress io.Writer

	gatekeeper *stage.Gatekeeper
	architect  *stage.Architect
	builder    *stage.Builder
	depsynth   *stage.DepSynth
	validator  *validate.Validator
	fixer      *fix.Fixer
}

// New creates an Orchestrator. events may be nil to disable the event log.
func New(s store.Store, events *db.DB, oracle llm.Completer, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store:      s,
		events:     events,
		cfg:        cfg,
		gatekeeper: stage.NewGatekeeper(oracle, roleOpts(cfg.Oracle.Gatekeeper)),
		architect:  stage.NewArchitect(oracle, roleOpts(cfg.Oracle.Architect)),
		builder:    stage.NewBuilder(oracle, roleOpts(cfg.Oracle.Builder), cfg.Pipeline.MaxParallelFiles),
		depsynth:   stage.NewDepSynth(oracle, roleOpts(cfg.Oracle.Architect)),
		validator:  validate.New(oracle, roleOpts(cfg.Oracle.Auditor)),
		fixer:      fix.New(oracle, roleOpts(cfg.Oracle.Auditor)),
	}
}

func roleOpts(rc config.RoleConfig) llm.Options {
	return llm.Options{Model: rc.Model, Temperature: rc.Temperature, MaxTokens: rc.MaxTokens}
}

// SetObserver registers a stage transition observer.
func (o *Orchestrator) SetObserver(obs Observer) {
	o.observer = obs
}

// SetProgress sets a writer for live progress output across all stages.
func (o *Orchestrator) SetProgress(w io.Writer) {
	o.progress = w
	o.gatekeeper.SetProgress(w)
	o.architect.SetProgress(w)
	o.builder.SetProgress(w)
	o.depsynth.SetProgress(w)
	o.validator.SetProgress(w)
	o.fixer.SetProgress(w)
}

// Create initializes a new build task and persists its initial state.
// The pipeline does not start until Run is called.
func (o *Orchestrator) Create(userQuery, referenceURL string) (*build.State, error) {
	q := strings.TrimSpace(userQuery)
	if q == "" {
		return nil, fmt.Errorf("user query must not be empty")
	}

	st := build.NewState(uuid.NewString(), q, referenceURL)
	now := time.Now().UTC().Format(time.RFC3339)
	st.CreatedAt = now
	st.UpdatedAt = now

	if _, err := o.store.Put(st); err != nil {
		return nil, fmt.Errorf("persist new task: %w", err)
	}
	o.logEvent(st.TaskID, "created", "", "")
	return st, nil
}

// Get returns the current state of a task.
func (o *Orchestrator) Get(taskID string) (*build.State, error) {
	st, _, err := o.store.Get(taskID)
	return st, err
}

// List returns the state of every known task.
func (o *Orchestrator) List() ([]*build.State, error) {
	return o.store.List()
}

// Run advances the task until it completes, fails, or suspends at an
// approval checkpoint. Calling Run on a suspended or completed task is a
// no-op that returns the current state.
func (o *Orchestrator) Run(ctx context.Context, taskID string) (*build.State, error) {
	st, rev, err := o.store.Get(taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if st.IsComplete || st.WaitingForApproval {
		return st, nil
	}
	return o.advance(ctx, st, rev)
}

// ApproveFeatures answers the feature checkpoint and resumes the pipeline.
// A stale approval returns checkpoint.ErrStaleCheckpoint and leaves the
// stored state unchanged.
func (o *Orchestrator) ApproveFeatures(ctx context.Context, taskID string, in checkpoint.FeatureApproval) (*build.State, error) {
	st, rev, err := o.store.Get(taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if err := checkpoint.ResumeFeatures(st, in); err != nil {
		return nil, err
	}
	rev, err = o.save(st, rev)
	if err != nil {
		return nil, err
	}
	o.logEvent(taskID, "resumed", StageFeatureCheckpoint, "")
	return o.advance(ctx, st, rev)
}

// ApproveTechStack answers the tech stack checkpoint and resumes the pipeline.
func (o *Orchestrator) ApproveTechStack(ctx context.Context, taskID string, in checkpoint.TechStackApproval) (*build.State, error) {
	st, rev, err := o.store.Get(taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if err := checkpoint.ResumeTechStack(st, in); err != nil {
		return nil, err
	}
	rev, err = o.save(st, rev)
	if err != nil {
		return nil, err
	}
	o.logEvent(taskID, "resumed", StageTechStackCheckpoint, "")
	return o.advance(ctx, st, rev)
}

// advance runs pipeline stages in order. Each step is guarded by a
// precondition on the state, so a resumed task picks up exactly where it
// suspended and finished work is never redone.
func (o *Orchestrator) advance(ctx context.Context, st *build.State, rev int64) (*build.State, error) {
	var err error

	if st.Classification == build.ClassificationUnknown {
		o.transition(st, StageClassify)
		if err := o.gatekeeper.Run(ctx, st); err != nil {
			return o.fail(st, rev, StageClassify, err)
		}
		if st.IsComplete {
			// Refused: the verdict and refusal reason are already on the state.
			if _, err := o.save(st, rev); err != nil {
				return nil, err
			}
			o.logEvent(st.TaskID, "refused", StageClassify, string(st.Classification))
			o.notify(StageDone, st)
			return st, nil
		}
		if rev, err = o.save(st, rev); err != nil {
			return nil, err
		}
	}

	if st.TechStack == "" {
		o.transition(st, StagePlan)
		if err := o.architect.Run(ctx, st); err != nil {
			return o.fail(st, rev, StagePlan, err)
		}
		if rev, err = o.save(st, rev); err != nil {
			return nil, err
		}
	}

	if st.ApprovalStage == build.ApprovalNone || st.ApprovalStage == build.ApprovalFeaturePending {
		o.transition(st, StageFeatureCheckpoint)
		checkpoint.PauseForFeatures(st)
		return o.suspend(st, rev, StageFeatureCheckpoint)
	}

	if st.ApprovalStage == build.ApprovalFeaturesApproved || st.ApprovalStage == build.ApprovalTechStackPending {
		o.transition(st, StageTechStackCheckpoint)
		checkpoint.PauseForTechStack(st)
		return o.suspend(st, rev, StageTechStackCheckpoint)
	}

	if st.ApprovalStage == build.ApprovalTechStackApproved {
		st.ApprovalStage = build.ApprovalBuilding
	}

	o.transition(st, StageGenerate)
	if err := o.builder.Run(ctx, st); err != nil {
		// Completed files stay on the state for inspection.
		return o.fail(st, rev, StageGenerate, err)
	}
	if rev, err = o.save(st, rev); err != nil {
		return nil, err
	}

	if !st.ValidationPassed {
		if rev, err = o.validateAndFix(ctx, st, rev); err != nil {
			return st, err
		}
	}

	o.transition(st, StageDepSynth)
	if err := o.depsynth.Run(ctx, st); err != nil {
		return o.fail(st, rev, StageDepSynth, err)
	}
	if rev, err = o.save(st, rev); err != nil {
		return nil, err
	}

	o.transition(st, StagePackage)
	zipPath, err := archive.Package(o.cfg.Paths.OutputDir, st.TaskID, st.GeneratedCode)
	if err != nil {
		return o.fail(st, rev, StagePackage, err)
	}
	st.ZipFilePath = zipPath

	st.ApprovalStage = build.ApprovalCompleted
	st.IsComplete = true
	if _, err := o.save(st, rev); err != nil {
		return nil, err
	}
	o.logEvent(st.TaskID, "completed", StagePackage, zipPath)
	o.notify(StageDone, st)
	return st, nil
}

// validateAndFix runs the bounded validate/fix loop. Each cycle rebuilds the
// wiring diagram from the current code, validates it, and on failure spends
// one retry on surgical fixes. When retries are exhausted the pipeline
// proceeds with the findings recorded in the fix summary.
func (o *Orchestrator) validateAndFix(ctx context.Context, st *build.State, rev int64) (int64, error) {
	var err error
	for {
		o.transition(st, StageValidate)
		st.WiringDiagram = scout.BuildDiagram(st.GeneratedCode)
		res := o.validator.Validate(ctx, st.WiringDiagram, st.GeneratedCode, validate.Context{
			Features:  st.EffectiveFeatures(),
			UserQuery: st.UserQuery,
		})
		st.ValidationIssues = res.Issues
		st.ValidationPassed = res.Passed()
		o.logValidation(st, res)
		if rev, err = o.save(st, rev); err != nil {
			return rev, err
		}

		if st.ValidationPassed {
			break
		}
		if st.RetryCount >= o.cfg.Pipeline.MaxRetryCount {
			o.logEvent(st.TaskID, "retries_exhausted", StageValidate, fmt.Sprintf("%d unresolved issues", len(res.Issues)))
			break
		}

		o.transition(st, StageFix)
		st.RetryCount++
		fres := o.fixer.Fix(ctx, res.Issues, st.GeneratedCode, st.UserQuery)
		st.GeneratedCode = fres.UpdatedCode
		st.CodeFixesApplied = append(st.CodeFixesApplied, fres.Fixes...)
		if rev, err = o.save(st, rev); err != nil {
			return rev, err
		}
	}

	if st.RetryCount > 0 {
		st.FixSummary = fixSummary(st)
		if rev, err = o.save(st, rev); err != nil {
			return rev, err
		}
	}
	return rev, nil
}

// fixSummary condenses the whole fix loop into its final report.
func fixSummary(st *build.State) *build.FixSummary {
	seen := make(map[string]bool)
	var modified []string
	for _, rec := range st.CodeFixesApplied {
		if !seen[rec.File] {
			seen[rec.File] = true
			modified = append(modified, rec.File)
		}
	}

	var unresolved []string
	if !st.ValidationPassed {
		seenU := make(map[string]bool)
		for _, iss := range st.ValidationIssues {
			if iss.File != "" && !seenU[iss.File] {
				seenU[iss.File] = true
				unresolved = append(unresolved, iss.File)
			}
		}
	}

	return &build.FixSummary{
		FilesFixed:      len(modified),
		FilesModified:   modified,
		UnresolvedFiles: unresolved,
		AllResolved:     st.ValidationPassed,
	}
}

// suspend persists the paused state and returns it.
func (o *Orchestrator) suspend(st *build.State, rev int64, stg Stage) (*build.State, error) {
	if _, err := o.save(st, rev); err != nil {
		return nil, err
	}
	o.logEvent(st.TaskID, "suspended", stg, string(st.ApprovalStage))
	return st, nil
}

// fail records a stage error as terminal state. The error is both persisted
// on the state and returned so callers can surface it.
func (o *Orchestrator) fail(st *build.State, rev int64, stg Stage, stageErr error) (*build.State, error) {
	st.ErrorMessage = fmt.Sprintf("%s: %v", stg, stageErr)
	st.IsComplete = true
	st.WaitingForApproval = false
	if _, err := o.save(st, rev); err != nil {
		return nil, err
	}
	o.logEvent(st.TaskID, "failed", stg, stageErr.Error())
	o.notify(StageDone, st)
	return st, fmt.Errorf("stage %s: %w", stg, stageErr)
}

func (o *Orchestrator) save(st *build.State, rev int64) (int64, error) {
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	newRev, err := o.store.CompareAndSwap(st, rev)
	if err != nil {
		return rev, fmt.Errorf("persist task %s: %w", st.TaskID, err)
	}
	return newRev, nil
}

func (o *Orchestrator) transition(st *build.State, stg Stage) {
	o.logEvent(st.TaskID, "stage_started", stg, "")
	o.notify(stg, st)
	if o.progress != nil {
		fmt.Fprintf(o.progress, "[%s] %s\n", shortID(st.TaskID), stg)
	}
}

func (o *Orchestrator) notify(stg Stage, st *build.State) {
	if o.observer != nil {
		o.observer(stg, st.Clone())
	}
}

func (o *Orchestrator) logEvent(taskID, event string, stg Stage, detail string) {
	if o.events == nil {
		return
	}
	_ = o.events.LogPipelineEvent(taskID, event, string(stg), detail)
}

func (o *Orchestrator) logValidation(st *build.State, res validate.Result) {
	if o.events == nil {
		return
	}
	issues, _ := json.Marshal(res.Issues)
	_ = o.events.LogValidationRun(st.TaskID, st.RetryCount, res.Passed(), res.Degraded, len(res.Issues), string(issues))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
