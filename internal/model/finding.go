package model

import "time"

// Finding is a sensitive-resource detection.
// It is created once by the scheduler and never modified afterwards.
type Finding struct {
	// URL is the normalized URL that matched.
	URL string `json:"url"`

	// Rule is the classifier rule that matched.
	Rule Rule `json:"rule"`

	// Reason is the human-readable match explanation,
	// e.g. "sensitive extension: env".
	Reason string `json:"reason"`

	// Severity is the risk level of the finding.
	Severity Severity `json:"severity"`

	// Depth is the crawl depth at which the URL was seen (0 for seeds).
	Depth int `json:"depth"`

	// DetectedAt is when the finding was recorded.
	DetectedAt time.Time `json:"detected_at"`
}

// NewFinding creates a Finding graded by the rule's severity.
func NewFinding(url string, rule Rule, reason string, depth int) Finding {
	return Finding{
		URL:        url,
		Rule:       rule,
		Reason:     reason,
		Severity:   GetSeverity(rule),
		Depth:      depth,
		DetectedAt: time.Now(),
	}
}

// Recommendation returns the remediation advice for the finding's rule.
func (f Finding) Recommendation() string {
	return GetFindingInfo(f.Rule).Recommendation
}
