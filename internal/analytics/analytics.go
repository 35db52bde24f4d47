// Package analytics computes aggregate pipeline metrics from the event log.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// timestamp formats to try when parsing timestamps from the database
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// StageDuration holds duration stats for a stage. Checkpoint stages include
// the time spent waiting for the human answer.
type StageDuration struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg_minutes"`
	P50   float64 `json:"p50_minutes"`
	P95   float64 `json:"p95_minutes"`
}

// QueryStageDurations returns average and percentile durations per stage.
// Each stage_started event is paired with the next event for the same task;
// the gap is attributed to the started stage.
func QueryStageDurations(database DB, since string) ([]StageDuration, error) {
	query := `
		SELECT pe1.task_id, pe1.stage, pe1.timestamp as start_ts,
			(SELECT MIN(pe2.timestamp) FROM pipeline_events pe2
			 WHERE pe2.task_id = pe1.task_id
			 AND pe2.id > pe1.id) as end_ts
		FROM pipeline_events pe1
		WHERE pe1.event = 'stage_started'
		AND pe1.stage != ''`

	args := []interface{}{}
	if since != "" {
		query += ` AND pe1.timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage durations: %w", err)
	}
	defer rows.Close()

	stageDurations := make(map[string][]float64)
	for rows.Next() {
		var taskID, stage, startTS string
		var endTS sql.NullString
		if err := rows.Scan(&taskID, &stage, &startTS, &endTS); err != nil {
			return nil, fmt.Errorf("scan stage duration: %w", err)
		}
		if !endTS.Valid {
			continue
		}
		start, err := parseTimestamp(startTS)
		if err != nil {
			continue
		}
		end, err := parseTimestamp(endTS.String)
		if err != nil {
			continue
		}
		minutes := end.Sub(start).Minutes()
		if minutes >= 0 {
			stageDurations[stage] = append(stageDurations[stage], minutes)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []StageDuration
	for stage, durations := range stageDurations {
		sort.Float64s(durations)
		results = append(results, StageDuration{
			Stage: stage,
			Count: len(durations),
			Avg:   avg(durations),
			P50:   percentile(durations, 50),
			P95:   percentile(durations, 95),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Stage < results[j].Stage
	})
	return results, nil
}

// ValidationStats summarizes validation outcomes across all tasks.
type ValidationStats struct {
	Runs          int     `json:"runs"`
	PassRate      float64 `json:"pass_rate_pct"`
	FirstPassRate float64 `json:"first_pass_rate_pct"`
	DegradedRate  float64 `json:"degraded_rate_pct"`
	AvgIssues     float64 `json:"avg_issues"`
}

// QueryValidationStats aggregates the validation_runs table. FirstPassRate is
// the share of tasks whose zeroth validation already passed.
func QueryValidationStats(database DB, since string) (*ValidationStats, error) {
	query := `
		SELECT COUNT(*) as total,
			COALESCE(SUM(CASE WHEN passed = 1 THEN 1 ELSE 0 END), 0) as passed,
			COALESCE(SUM(CASE WHEN degraded = 1 THEN 1 ELSE 0 END), 0) as degraded,
			COALESCE(AVG(issue_count), 0) as avg_issues
		FROM validation_runs WHERE 1=1`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	var total, passed, degraded int
	var avgIssues float64
	err := database.Conn().QueryRow(query, args...).Scan(&total, &passed, &degraded, &avgIssues)
	if err != nil {
		return nil, fmt.Errorf("query validation stats: %w", err)
	}

	fpQuery := `
		SELECT COUNT(DISTINCT task_id),
			SUM(CASE WHEN passed = 1 THEN 1 ELSE 0 END)
		FROM validation_runs WHERE retry_count = 0`
	fpArgs := []interface{}{}
	if since != "" {
		fpQuery += ` AND timestamp >= ?`
		fpArgs = append(fpArgs, since)
	}
	var firstTotal int
	var firstPassed sql.NullInt64
	if err := database.Conn().QueryRow(fpQuery, fpArgs...).Scan(&firstTotal, &firstPassed); err != nil {
		return nil, fmt.Errorf("query first-pass rate: %w", err)
	}

	return &ValidationStats{
		Runs:          total,
		PassRate:      pct(passed, total),
		FirstPassRate: pct(int(firstPassed.Int64), firstTotal),
		DegradedRate:  pct(degraded, total),
		AvgIssues:     round1(avgIssues),
	}, nil
}

// RetryDist is the distribution of final retry counts across tasks.
type RetryDist struct {
	Retries int `json:"retries"`
	Tasks   int `json:"tasks"`
}

// QueryRetryDistribution returns how many tasks ended with each retry count,
// taking the highest retry_count recorded per task.
func QueryRetryDistribution(database DB, since string) ([]RetryDist, error) {
	query := `
		SELECT max_retries, COUNT(*) FROM (
			SELECT task_id, MAX(retry_count) as max_retries
			FROM validation_runs WHERE 1=1`
	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}
	query += `
			GROUP BY task_id
		) sub
		GROUP BY max_retries ORDER BY max_retries`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query retry distribution: %w", err)
	}
	defer rows.Close()

	var results []RetryDist
	for rows.Next() {
		var d RetryDist
		if err := rows.Scan(&d.Retries, &d.Tasks); err != nil {
			return nil, fmt.Errorf("scan retry distribution: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// Throughput holds terminal outcome counts for one day.
type Throughput struct {
	Day       string `json:"day"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Refused   int    `json:"refused"`
}

// QueryThroughput returns terminal outcomes per day, most recent first.
func QueryThroughput(database DB, since string) ([]Throughput, error) {
	query := `
		SELECT DATE(timestamp) as day,
			SUM(CASE WHEN event = 'completed' THEN 1 ELSE 0 END) as completed,
			SUM(CASE WHEN event = 'failed' THEN 1 ELSE 0 END) as failed,
			SUM(CASE WHEN event = 'refused' THEN 1 ELSE 0 END) as refused
		FROM pipeline_events
		WHERE event IN ('completed', 'failed', 'refused')`

	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY day ORDER BY day DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query throughput: %w", err)
	}
	defer rows.Close()

	var results []Throughput
	for rows.Next() {
		var t Throughput
		if err := rows.Scan(&t.Day, &t.Completed, &t.Failed, &t.Refused); err != nil {
			return nil, fmt.Errorf("scan throughput: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return round1(sum / float64(len(values)))
}

// percentile expects a sorted slice.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(p)/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return round1(sorted[idx])
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(n) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
