// Package findings accumulates the results of a run: the sensitive
// resources that were detected and the request counters shown by the
// progress line and the final summary.
//
// All methods are safe for concurrent use. Counters only ever increase and
// findings are only ever appended.
package findings

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/exposcan/internal/model"
)

// Aggregator collects findings and counters for one run.
type Aggregator struct {
	startedAt time.Time

	scheduled      atomic.Int64
	succeeded      atomic.Int64
	failed         atomic.Int64
	rejected       atomic.Int64
	duplicates     atomic.Int64
	ignored        atomic.Int64
	branchTimeouts atomic.Int64

	mu       sync.Mutex
	findings []model.Finding
	seen     map[string]struct{}

	// onFinding is called outside the lock for every new finding.
	onFinding func(model.Finding)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithStartTime overrides the run start time (defaults to time.Now()).
func WithStartTime(t time.Time) Option {
	return func(a *Aggregator) {
		a.startedAt = t
	}
}

// WithFindingHook registers a callback invoked once for every new finding,
// e.g. to print hits as they happen.
func WithFindingHook(fn func(model.Finding)) Option {
	return func(a *Aggregator) {
		a.onFinding = fn
	}
}

// New creates an empty Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		startedAt: time.Now(),
		findings:  make([]model.Finding, 0),
		seen:      make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Record appends a finding. A URL that was already recorded is ignored and
// Record returns false.
func (a *Aggregator) Record(f model.Finding) bool {
	a.mu.Lock()
	if _, dup := a.seen[f.URL]; dup {
		a.mu.Unlock()
		return false
	}
	a.seen[f.URL] = struct{}{}
	a.findings = append(a.findings, f)
	a.mu.Unlock()

	if a.onFinding != nil {
		a.onFinding(f)
	}
	return true
}

// Findings returns a copy of the recorded findings in recording order.
func (a *Aggregator) Findings() []model.Finding {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]model.Finding, len(a.findings))
	copy(out, a.findings)
	return out
}

// FindingCount returns the number of recorded findings.
func (a *Aggregator) FindingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.findings)
}

// IncScheduled counts a URL that won the dedup race.
func (a *Aggregator) IncScheduled() { a.scheduled.Add(1) }

// IncSucceeded counts a completed request.
func (a *Aggregator) IncSucceeded() { a.succeeded.Add(1) }

// IncFailed counts a malformed URL or a transport failure.
func (a *Aggregator) IncFailed() { a.failed.Add(1) }

// IncRejected counts a policy rejection. Rejections are failures too.
func (a *Aggregator) IncRejected() {
	a.rejected.Add(1)
	a.failed.Add(1)
}

// IncDuplicate counts a URL skipped by the dedup set.
func (a *Aggregator) IncDuplicate() { a.duplicates.Add(1) }

// IncIgnored counts a static asset that was not fetched.
func (a *Aggregator) IncIgnored() { a.ignored.Add(1) }

// IncBranchTimeout counts a child subtree abandoned at its deadline.
// An abandoned subtree is a failure too.
func (a *Aggregator) IncBranchTimeout() {
	a.branchTimeouts.Add(1)
	a.failed.Add(1)
}

// StartedAt returns the run start time.
func (a *Aggregator) StartedAt() time.Time {
	return a.startedAt
}

// Snapshot returns the current counters.
func (a *Aggregator) Snapshot() model.Stats {
	return model.Stats{
		StartedAt:      a.startedAt,
		Elapsed:        time.Since(a.startedAt),
		Scheduled:      a.scheduled.Load(),
		Succeeded:      a.succeeded.Load(),
		Failed:         a.failed.Load(),
		Rejected:       a.rejected.Load(),
		Duplicates:     a.duplicates.Load(),
		Ignored:        a.ignored.Load(),
		BranchTimeouts: a.branchTimeouts.Load(),
		Findings:       a.FindingCount(),
	}
}
