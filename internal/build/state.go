package build

// Classification is the gatekeeper's verdict on a build request.
type Classification string

const (
	ClassificationUnknown    Classification = ""
	ClassificationHomework   Classification = "homework"
	ClassificationProduction Classification = "production"
	ClassificationMalicious  Classification = "malicious"
)

// TechStack identifies a supported generation target.
type TechStack string

const (
	StackHTMLSingle TechStack = "html_single"
	StackHTMLMulti  TechStack = "html_multi"
	StackReactCDN   TechStack = "react_cdn"
	StackVueCDN     TechStack = "vue_cdn"
)

// KnownStacks lists every tech stack the builder can generate for.
var KnownStacks = []TechStack{StackHTMLSingle, StackHTMLMulti, StackReactCDN, StackVueCDN}

// ApprovalStage tracks where a task sits in the human approval workflow.
type ApprovalStage string

const (
	ApprovalNone              ApprovalStage = ""
	ApprovalFeaturePending    ApprovalStage = "feature_approval"
	ApprovalFeaturesApproved  ApprovalStage = "features_approved"
	ApprovalTechStackPending  ApprovalStage = "techstack_approval"
	ApprovalTechStackApproved ApprovalStage = "techstack_approved"
	ApprovalBuilding          ApprovalStage = "building"
	ApprovalCompleted         ApprovalStage = "completed"
)

// Pending reports whether the stage is one of the two pause points.
func (a ApprovalStage) Pending() bool {
	return a == ApprovalFeaturePending || a == ApprovalTechStackPending
}

// Severity classifies a validation issue.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
)

// Priority classifies a planned feature.
type Priority string

const (
	PriorityCore        Priority = "core"
	PriorityEnhancement Priority = "enhancement"
)

// FileSpec describes one file the planner wants generated.
type FileSpec struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Purpose string `json:"purpose,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

// Asset describes one external dependency (CDN link, package, font).
type Asset struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// Feature is one planned project feature pending user approval.
type Feature struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
	Benefit     string   `json:"benefit,omitempty"`
}

// Issue is a single validation finding against a generated file.
type Issue struct {
	Category     string   `json:"category"`
	Severity     Severity `json:"severity"`
	File         string   `json:"file"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// FixRecord summarises one applied surgical fix.
type FixRecord struct {
	File        string `json:"file"`
	Summary     string `json:"summary"`
	IssuesFixed int    `json:"issues_fixed"`
}

// WiringEntry is the structural metadata one scout extracted from one file.
type WiringEntry struct {
	DefinedIdentifiers    []string `json:"defined_identifiers,omitempty"`
	ReferencedIdentifiers []string `json:"referenced_identifiers,omitempty"`
	DeclaredRoutes        []string `json:"declared_routes,omitempty"`
	CalledEndpoints       []string `json:"called_endpoints,omitempty"`
	Imports               []string `json:"imports,omitempty"`
	SyntaxError           bool     `json:"syntax_error,omitempty"`
}

// FixSummary reports the outcome of the whole fix loop for a task.
type FixSummary struct {
	FilesFixed      int      `json:"files_fixed"`
	FilesModified   []string `json:"files_modified,omitempty"`
	UnresolvedFiles []string `json:"unresolved_files,omitempty"`
	AllResolved     bool     `json:"all_resolved"`
}

// State is the single mutable record threaded through every pipeline stage.
// The orchestrator owns it exclusively for the duration of one run-to-suspension;
// between checkpoints it lives in the task store.
type State struct {
	// Identity
	TaskID       string `json:"task_id"`
	UserQuery    string `json:"user_query"`
	ReferenceURL string `json:"reference_url,omitempty"`

	// Planning outputs
	Classification  Classification         `json:"classification,omitempty"`
	RefusalReason   string                 `json:"refusal_reason,omitempty"`
	TechStack       TechStack              `json:"tech_stack,omitempty"`
	FileStructure   []FileSpec             `json:"file_structure,omitempty"`
	AssetManifest   []Asset                `json:"asset_manifest,omitempty"`
	ProjectFeatures []Feature              `json:"project_features,omitempty"`
	DesignSpecs     map[string]string      `json:"design_specs,omitempty"`
	Reasoning       string                 `json:"reasoning,omitempty"`

	// Approval overlay. Once set these are the sole source of truth downstream;
	// unset fields fall back to the planning output (Effective* accessors).
	ApprovedFeatures      []Feature         `json:"approved_features,omitempty"`
	ApprovedDesignSpecs   map[string]string `json:"approved_design_specs,omitempty"`
	ApprovedTechStack     TechStack         `json:"approved_tech_stack,omitempty"`
	ApprovedFileStructure []FileSpec        `json:"approved_file_structure,omitempty"`
	ApprovedAssetManifest []Asset           `json:"approved_asset_manifest,omitempty"`
	UserRequirements      string            `json:"user_requirements,omitempty"`

	// Approval control
	ApprovalStage      ApprovalStage `json:"approval_stage,omitempty"`
	WaitingForApproval bool          `json:"waiting_for_approval"`

	// Generation artifacts. Keys are unique filenames; the map grows
	// monotonically across generation and fixing, never shrinks.
	GeneratedCode map[string]string `json:"generated_code,omitempty"`

	// Validation state
	WiringDiagram    map[string]WiringEntry `json:"wiring_diagram,omitempty"`
	ValidationIssues []Issue                `json:"validation_issues,omitempty"`
	ValidationPassed bool                   `json:"validation_passed"`

	// Fix state
	RetryCount       int         `json:"retry_count"`
	CodeFixesApplied []FixRecord `json:"code_fixes_applied,omitempty"`
	FixSummary       *FixSummary `json:"fix_summary,omitempty"`

	// Terminal state
	ZipFilePath  string `json:"zip_file_path,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	IsComplete   bool   `json:"is_complete"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// NewState creates an initial State for a fresh build request.
func NewState(taskID, userQuery, referenceURL string) *State {
	return &State{
		TaskID:       taskID,
		UserQuery:    userQuery,
		ReferenceURL: referenceURL,
	}
}

// EffectiveFeatures returns the approved feature list, falling back to the
// planner's proposal when the user has not supplied one.
func (s *State) EffectiveFeatures() []Feature {
	if len(s.ApprovedFeatures) > 0 {
		return s.ApprovedFeatures
	}
	return s.ProjectFeatures
}

// EffectiveDesignSpecs returns the approved design specs or the planned ones.
func (s *State) EffectiveDesignSpecs() map[string]string {
	if len(s.ApprovedDesignSpecs) > 0 {
		return s.ApprovedDesignSpecs
	}
	return s.DesignSpecs
}

// EffectiveTechStack returns the approved tech stack or the planned one.
func (s *State) EffectiveTechStack() TechStack {
	if s.ApprovedTechStack != "" {
		return s.ApprovedTechStack
	}
	return s.TechStack
}

// EffectiveFileStructure returns the approved file structure or the planned one.
func (s *State) EffectiveFileStructure() []FileSpec {
	if len(s.ApprovedFileStructure) > 0 {
		return s.ApprovedFileStructure
	}
	return s.FileStructure
}

// EffectiveAssetManifest returns the approved asset manifest or the planned one.
func (s *State) EffectiveAssetManifest() []Asset {
	if len(s.ApprovedAssetManifest) > 0 {
		return s.ApprovedAssetManifest
	}
	return s.AssetManifest
}

// AppendRequirements concatenates a user note onto any prior notes.
// Notes are never replaced, only accumulated across checkpoints.
func (s *State) AppendRequirements(note string) {
	if note == "" {
		return
	}
	if s.UserRequirements == "" {
		s.UserRequirements = note
		return
	}
	s.UserRequirements += "\n" + note
}

// Clone returns a deep copy of the state. Progress snapshots are taken from
// clones so observers never see in-place stage mutations.
func (s *State) Clone() *State {
	c := *s
	c.FileStructure = append([]FileSpec(nil), s.FileStructure...)
	c.AssetManifest = append([]Asset(nil), s.AssetManifest...)
	c.ProjectFeatures = append([]Feature(nil), s.ProjectFeatures...)
	c.ApprovedFeatures = append([]Feature(nil), s.ApprovedFeatures...)
	c.ApprovedFileStructure = append([]FileSpec(nil), s.ApprovedFileStructure...)
	c.ApprovedAssetManifest = append([]Asset(nil), s.ApprovedAssetManifest...)
	c.ValidationIssues = append([]Issue(nil), s.ValidationIssues...)
	c.CodeFixesApplied = append([]FixRecord(nil), s.CodeFixesApplied...)
	c.DesignSpecs = copyStringMap(s.DesignSpecs)
	c.ApprovedDesignSpecs = copyStringMap(s.ApprovedDesignSpecs)
	c.GeneratedCode = copyStringMap(s.GeneratedCode)
	if s.WiringDiagram != nil {
		c.WiringDiagram = make(map[string]WiringEntry, len(s.WiringDiagram))
		for k, v := range s.WiringDiagram {
			c.WiringDiagram[k] = v
		}
	}
	if s.FixSummary != nil {
		fs := *s.FixSummary
		fs.FilesModified = append([]string(nil), s.FixSummary.FilesModified...)
		fs.UnresolvedFiles = append([]string(nil), s.FixSummary.UnresolvedFiles...)
		c.FixSummary = &fs
	}
	return &c
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
