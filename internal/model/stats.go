package model

import "time"

// Stats is a snapshot of the counters of a run.
type Stats struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the time since StartedAt when the snapshot was taken.
	Elapsed time.Duration `json:"elapsed"`

	// Scheduled counts URLs that won the dedup race and were queued for fetching.
	Scheduled int64 `json:"scheduled"`

	// Succeeded counts completed HTTP requests, whatever their status code.
	Succeeded int64 `json:"succeeded"`

	// Failed counts malformed URLs, policy rejections, transport failures
	// and abandoned subtrees.
	Failed int64 `json:"failed"`

	// Rejected counts URLs refused by policy (forbidden port).
	// Rejections are also included in Failed.
	Rejected int64 `json:"rejected"`

	// Duplicates counts URLs skipped because they were already scheduled.
	Duplicates int64 `json:"duplicates"`

	// Ignored counts static assets that were never fetched.
	Ignored int64 `json:"ignored"`

	// BranchTimeouts counts child subtrees abandoned at their deadline.
	// Timeouts are also included in Failed.
	BranchTimeouts int64 `json:"branch_timeouts"`

	// Findings is the number of recorded findings.
	Findings int `json:"findings"`
}

// Requests returns the number of requests that reached the network or failed.
func (s Stats) Requests() int64 {
	return s.Succeeded + s.Failed
}
