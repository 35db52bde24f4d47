// Package checkpoint implements the two human-approval pause points. A pause
// seeds approved values from the planner's proposals; a resume validates the
// caller is answering the checkpoint that is actually pending, then merges
// the user's overrides.
package checkpoint

import (
	"errors"
	"fmt"

	"buildsmith/internal/build"
)

// ErrStaleCheckpoint indicates a resume arrived for a checkpoint that is not
// the pending one. It is a caller error; state is left untouched.
var ErrStaleCheckpoint = errors.New("stale checkpoint")

// PauseForFeatures suspends the pipeline at the feature approval checkpoint.
// Seeding is idempotent: a repeated pause never overwrites an approved value
// the user already set.
func PauseForFeatures(st *build.State) {
	st.ApprovalStage = build.ApprovalFeaturePending
	st.WaitingForApproval = true
	if len(st.ApprovedFeatures) == 0 {
		st.ApprovedFeatures = append([]build.Feature(nil), st.ProjectFeatures...)
	}
	if len(st.ApprovedDesignSpecs) == 0 && len(st.DesignSpecs) > 0 {
		st.ApprovedDesignSpecs = make(map[string]string, len(st.DesignSpecs))
		for k, v := range st.DesignSpecs {
			st.ApprovedDesignSpecs[k] = v
		}
	}
}

// PauseForTechStack suspends the pipeline at the tech stack checkpoint.
func PauseForTechStack(st *build.State) {
	st.ApprovalStage = build.ApprovalTechStackPending
	st.WaitingForApproval = true
	if st.ApprovedTechStack == "" {
		st.ApprovedTechStack = st.TechStack
	}
	if len(st.ApprovedFileStructure) == 0 {
		st.ApprovedFileStructure = append([]build.FileSpec(nil), st.FileStructure...)
	}
	if len(st.ApprovedAssetManifest) == 0 {
		st.ApprovedAssetManifest = append([]build.Asset(nil), st.AssetManifest...)
	}
}

// FeatureApproval carries the user's answer to the feature checkpoint.
// Empty fields keep the seeded defaults.
type FeatureApproval struct {
	Features    []build.Feature   `json:"features,omitempty"`
	DesignSpecs map[string]string `json:"design_specs,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

// ResumeFeatures merges a feature approval into the state. Unless the
// feature checkpoint is the one pending it fails with ErrStaleCheckpoint
// without mutating anything.
func ResumeFeatures(st *build.State, in FeatureApproval) error {
	if err := expectStage(st, build.ApprovalFeaturePending); err != nil {
		return err
	}

	if len(in.Features) > 0 {
		st.ApprovedFeatures = in.Features
	}
	if len(in.DesignSpecs) > 0 {
		st.ApprovedDesignSpecs = in.DesignSpecs
	}
	st.AppendRequirements(in.Notes)
	st.WaitingForApproval = false
	st.ApprovalStage = build.ApprovalFeaturesApproved
	return nil
}

// TechStackApproval carries the user's answer to the tech stack checkpoint.
// Empty fields keep the seeded defaults.
type TechStackApproval struct {
	TechStack     build.TechStack  `json:"tech_stack,omitempty"`
	FileStructure []build.FileSpec `json:"file_structure,omitempty"`
	AssetManifest []build.Asset    `json:"asset_manifest,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// ResumeTechStack merges a tech stack approval into the state. Unless the
// tech stack checkpoint is the one pending it fails with ErrStaleCheckpoint
// without mutating anything.
func ResumeTechStack(st *build.State, in TechStackApproval) error {
	if err := expectStage(st, build.ApprovalTechStackPending); err != nil {
		return err
	}

	if in.TechStack != "" {
		st.ApprovedTechStack = in.TechStack
	}
	if len(in.FileStructure) > 0 {
		st.ApprovedFileStructure = in.FileStructure
	}
	if len(in.AssetManifest) > 0 {
		st.ApprovedAssetManifest = in.AssetManifest
	}
	st.AppendRequirements(in.Notes)
	st.WaitingForApproval = false
	st.ApprovalStage = build.ApprovalTechStackApproved
	return nil
}

func expectStage(st *build.State, want build.ApprovalStage) error {
	if st.ApprovalStage != want {
		return fmt.Errorf("%w: task %s is at %q, expected %q",
			ErrStaleCheckpoint, st.TaskID, st.ApprovalStage, want)
	}
	return nil
}
