package build

import (
	"reflect"
	"testing"
)

func TestEffectiveAccessors_FallBackToPlan(t *testing.T) {
	st := NewState("t1", "query", "")
	st.TechStack = StackHTMLMulti
	st.ProjectFeatures = []Feature{{Name: "planned"}}
	st.DesignSpecs = map[string]string{"palette": "light"}
	st.FileStructure = []FileSpec{{Name: "index.html"}}
	st.AssetManifest = []Asset{{Name: "logo.svg"}}

	if st.EffectiveTechStack() != StackHTMLMulti {
		t.Error("stack should fall back to plan")
	}
	if st.EffectiveFeatures()[0].Name != "planned" {
		t.Error("features should fall back to plan")
	}
	if st.EffectiveDesignSpecs()["palette"] != "light" {
		t.Error("design specs should fall back to plan")
	}
	if st.EffectiveFileStructure()[0].Name != "index.html" {
		t.Error("structure should fall back to plan")
	}
	if st.EffectiveAssetManifest()[0].Name != "logo.svg" {
		t.Error("assets should fall back to plan")
	}
}

func TestEffectiveAccessors_ApprovalWins(t *testing.T) {
	st := NewState("t1", "query", "")
	st.TechStack = StackHTMLSingle
	st.ProjectFeatures = []Feature{{Name: "planned"}}
	st.ApprovedTechStack = StackVueCDN
	st.ApprovedFeatures = []Feature{{Name: "approved"}}

	if st.EffectiveTechStack() != StackVueCDN {
		t.Error("approved stack must win")
	}
	if st.EffectiveFeatures()[0].Name != "approved" {
		t.Error("approved features must win")
	}
}

func TestAppendRequirements(t *testing.T) {
	st := NewState("t1", "query", "")
	st.AppendRequirements("")
	if st.UserRequirements != "" {
		t.Error("empty note must be a no-op")
	}
	st.AppendRequirements("first")
	st.AppendRequirements("second")
	if st.UserRequirements != "first\nsecond" {
		t.Errorf("got %q", st.UserRequirements)
	}
}

func TestApprovalStagePending(t *testing.T) {
	pending := []ApprovalStage{ApprovalFeaturePending, ApprovalTechStackPending}
	for _, a := range pending {
		if !a.Pending() {
			t.Errorf("%q should be pending", a)
		}
	}
	notPending := []ApprovalStage{ApprovalNone, ApprovalFeaturesApproved, ApprovalTechStackApproved, ApprovalBuilding, ApprovalCompleted}
	for _, a := range notPending {
		if a.Pending() {
			t.Errorf("%q should not be pending", a)
		}
	}
}

func TestClone_IsolatedFromOriginal(t *testing.T) {
	st := NewState("t1", "query", "")
	st.GeneratedCode = map[string]string{"a.js": "one"}
	st.ValidationIssues = []Issue{{File: "a.js", Severity: SeverityCritical}}
	st.WiringDiagram = map[string]WiringEntry{"a.js": {DefinedIdentifiers: []string{"x"}}}
	st.FixSummary = &FixSummary{FilesModified: []string{"a.js"}}

	c := st.Clone()
	if !reflect.DeepEqual(c, st) {
		t.Fatal("clone should equal the original")
	}

	st.GeneratedCode["a.js"] = "changed"
	st.ValidationIssues[0].File = "changed"
	st.FixSummary.FilesModified[0] = "changed"

	if c.GeneratedCode["a.js"] != "one" {
		t.Error("generated code shared with original")
	}
	if c.ValidationIssues[0].File != "a.js" {
		t.Error("issues shared with original")
	}
	if c.FixSummary.FilesModified[0] != "a.js" {
		t.Error("fix summary shared with original")
	}
}
