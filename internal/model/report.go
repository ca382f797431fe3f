package model

import (
	"sort"
	"time"
)

// RunReport contains everything collected during one scan run.
// It is assembled after every branch has joined and is read-only from then on.
type RunReport struct {
	// RunID uniquely identifies the run in the history database.
	RunID string `json:"run_id"`

	// Seeds is the number of non-blank seed URLs supplied.
	Seeds int `json:"seeds"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last branch joined.
	FinishedAt time.Time `json:"finished_at"`

	// Interrupted is true when the run was stopped by a signal.
	// The findings are then a best-effort subset.
	Interrupted bool `json:"interrupted"`

	// Stats holds the final counters.
	Stats Stats `json:"stats"`

	// Findings contains every recorded finding.
	Findings []Finding `json:"findings"`
}

// NewRunReport creates a RunReport whose findings are ordered by severity
// (most severe first) and then by URL, so that reports are stable.
func NewRunReport(runID string, seeds int, stats Stats, findings []Finding, interrupted bool) *RunReport {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Severity != sorted[j].Severity {
			return sorted[i].Severity > sorted[j].Severity
		}
		return sorted[i].URL < sorted[j].URL
	})

	return &RunReport{
		RunID:       runID,
		Seeds:       seeds,
		StartedAt:   stats.StartedAt,
		FinishedAt:  stats.StartedAt.Add(stats.Elapsed),
		Interrupted: interrupted,
		Stats:       stats,
		Findings:    sorted,
	}
}

// Duration returns the wall-clock length of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasFindings returns true if at least one finding was recorded.
func (r *RunReport) HasFindings() bool {
	return len(r.Findings) > 0
}

// CountBySeverity returns the number of findings per severity level.
func (r *RunReport) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

// GetFindingsBySeverity returns the findings at the given level.
func (r *RunReport) GetFindingsBySeverity(severity Severity) []Finding {
	result := make([]Finding, 0)
	for _, f := range r.Findings {
		if f.Severity == severity {
			result = append(result, f)
		}
	}
	return result
}
