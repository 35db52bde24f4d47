package db

import (
	"database/sql"
	"fmt"
)

// PipelineEvent represents a row in the pipeline_events table.
type PipelineEvent struct {
	ID        int
	TaskID    string
	Event     string
	Stage     string
	Detail    string
	Timestamp string
}

// ValidationRun represents a row in the validation_runs table.
type ValidationRun struct {
	ID         int
	TaskID     string
	RetryCount int
	Passed     bool
	Degraded   bool
	IssueCount int
	Issues     string
	Timestamp  string
}

// LogPipelineEvent inserts a pipeline event.
func (d *DB) LogPipelineEvent(taskID, event, stage, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO pipeline_events (task_id, event, stage, detail) VALUES (?, ?, ?, ?)`,
		taskID, event, stage, detail,
	)
	if err != nil {
		return fmt.Errorf("log pipeline event: %w", err)
	}
	return nil
}

// LogValidationRun inserts a validation run record. issues carries the
// serialized issue list for later inspection.
func (d *DB) LogValidationRun(taskID string, retryCount int, passed, degraded bool, issueCount int, issues string) error {
	_, err := d.conn.Exec(
		`INSERT INTO validation_runs (task_id, retry_count, passed, degraded, issue_count, issues)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		taskID, retryCount, passed, degraded, issueCount, issues,
	)
	if err != nil {
		return fmt.Errorf("log validation run: %w", err)
	}
	return nil
}

// GetPipelineEvents returns all events for a task, oldest first.
func (d *DB) GetPipelineEvents(taskID string) ([]PipelineEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, task_id, event, stage, detail, timestamp
		 FROM pipeline_events WHERE task_id = ? ORDER BY id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pipeline events: %w", err)
	}
	defer rows.Close()

	var events []PipelineEvent
	for rows.Next() {
		var e PipelineEvent
		var stage, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Event, &stage, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pipeline event: %w", err)
		}
		e.Stage = stage.String
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// LatestEvent returns the most recent event for a task, or nil if none exist.
func (d *DB) LatestEvent(taskID string) (*PipelineEvent, error) {
	row := d.conn.QueryRow(
		`SELECT id, task_id, event, stage, detail, timestamp
		 FROM pipeline_events WHERE task_id = ? ORDER BY id DESC LIMIT 1`,
		taskID,
	)
	var e PipelineEvent
	var stage, detail sql.NullString
	err := row.Scan(&e.ID, &e.TaskID, &e.Event, &stage, &detail, &e.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest event: %w", err)
	}
	e.Stage = stage.String
	e.Detail = detail.String
	return &e, nil
}

// GetValidationRuns returns all validation runs for a task, oldest first.
func (d *DB) GetValidationRuns(taskID string) ([]ValidationRun, error) {
	rows, err := d.conn.Query(
		`SELECT id, task_id, retry_count, passed, degraded, issue_count, issues, timestamp
		 FROM validation_runs WHERE task_id = ? ORDER BY id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query validation runs: %w", err)
	}
	defer rows.Close()

	var runs []ValidationRun
	for rows.Next() {
		var r ValidationRun
		var issues sql.NullString
		if err := rows.Scan(&r.ID, &r.TaskID, &r.RetryCount, &r.Passed, &r.Degraded, &r.IssueCount, &issues, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan validation run: %w", err)
		}
		r.Issues = issues.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
