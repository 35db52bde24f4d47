package db

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestMigrate_Idempotent(t *testing.T) {
	d := testDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestLogPipelineEvent_RoundTrip(t *testing.T) {
	d := testDB(t)

	if err := d.LogPipelineEvent("task-1", "created", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.LogPipelineEvent("task-1", "stage_started", "classify", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.LogPipelineEvent("task-2", "created", "", ""); err != nil {
		t.Fatal(err)
	}

	events, err := d.GetPipelineEvents("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for task-1, got %d", len(events))
	}
	if events[0].Event != "created" || events[1].Event != "stage_started" {
		t.Errorf("order wrong: %+v", events)
	}
	if events[1].Stage != "classify" {
		t.Errorf("stage = %q", events[1].Stage)
	}
}

func TestLatestEvent(t *testing.T) {
	d := testDB(t)

	latest, err := d.LatestEvent("missing")
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Errorf("expected nil for unknown task, got %+v", latest)
	}

	_ = d.LogPipelineEvent("task-1", "created", "", "")
	_ = d.LogPipelineEvent("task-1", "completed", "package", "/tmp/task-1.zip")

	latest, err = d.LatestEvent("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Event != "completed" {
		t.Errorf("latest = %+v", latest)
	}
	if latest.Detail != "/tmp/task-1.zip" {
		t.Errorf("detail = %q", latest.Detail)
	}
}

func TestValidationRuns_RoundTrip(t *testing.T) {
	d := testDB(t)

	if err := d.LogValidationRun("task-1", 0, false, false, 3, `[{"file":"a.js"}]`); err != nil {
		t.Fatal(err)
	}
	if err := d.LogValidationRun("task-1", 1, true, false, 0, "[]"); err != nil {
		t.Fatal(err)
	}

	runs, err := d.GetValidationRuns("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Passed || runs[0].IssueCount != 3 {
		t.Errorf("first run = %+v", runs[0])
	}
	if !runs[1].Passed || runs[1].RetryCount != 1 {
		t.Errorf("second run = %+v", runs[1])
	}
}

func TestReset(t *testing.T) {
	d := testDB(t)
	_ = d.LogPipelineEvent("task-1", "created", "", "")

	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	events, err := d.GetPipelineEvents("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("expected empty log after reset, got %d", len(events))
	}
}
