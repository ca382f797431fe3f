package model

import (
	"fmt"
	"strings"
)

// Severity represents the risk level of a finding.
//
// Every rule currently shipped reports SeverityHigh; the lower levels exist
// so that custom rules loaded from a policy file can be graded.
type Severity int

const (
	// SeverityInfo indicates informational findings with no direct exposure.
	SeverityInfo Severity = iota

	// SeverityLow indicates resources that leak little on their own.
	SeverityLow

	// SeverityMedium indicates resources that hint at internal structure.
	SeverityMedium

	// SeverityHigh indicates a publicly reachable backup, dump, key or
	// version-control artifact.
	SeverityHigh

	// SeverityCritical indicates confirmed credential material.
	SeverityCritical
)

// String returns the upper-case name of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Label returns the lower-case name used in report rows ("high").
func (s Severity) Label() string {
	return strings.ToLower(s.String())
}

// MarshalText encodes the severity as its label in JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.Label()), nil
}

// UnmarshalText decodes a severity label.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", text)
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a case-insensitive level name into a Severity.
// Unknown names map to SeverityInfo and ok=false.
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INFO":
		return SeverityInfo, true
	case "LOW":
		return SeverityLow, true
	case "MEDIUM":
		return SeverityMedium, true
	case "HIGH":
		return SeverityHigh, true
	case "CRITICAL":
		return SeverityCritical, true
	default:
		return SeverityInfo, false
	}
}

// AllSeverities returns every level from most to least severe.
func AllSeverities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityInfo,
	}
}

// Rule names the classifier rule that produced a finding.
type Rule string

const (
	// RuleExtension matches on the final path extension.
	RuleExtension Rule = "sensitive_extension"

	// RulePathPattern matches a configured path regular expression.
	RulePathPattern Rule = "path_pattern"

	// RuleCompoundArchive matches a double extension such as db.sql.zip.
	RuleCompoundArchive Rule = "compound_archive"
)

// FindingInfo contains metadata about a rule: its severity, the impact of
// an exposure and the remediation advice printed in reports.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping is the single source of truth for rule severity.
var findingInfoMapping = map[Rule]FindingInfo{
	RuleExtension: {
		Severity:       SeverityHigh,
		Impact:         "A file whose extension indicates configuration, keys, certificates or database content is publicly reachable.",
		Recommendation: "Remove the file from the web root or deny access to it in the web server configuration.",
	},
	RulePathPattern: {
		Severity:       SeverityHigh,
		Impact:         "A backup, archive or version-control directory is exposed and may disclose source code or history.",
		Recommendation: "Block the directory at the web server and remove repository metadata from deployed content.",
	},
	RuleCompoundArchive: {
		Severity:       SeverityHigh,
		Impact:         "A compressed dump or backup of sensitive data is publicly downloadable.",
		Recommendation: "Delete the archive from the server and rotate any credentials it may contain.",
	},
}

// GetFindingInfo returns the metadata for a rule.
// Unknown rules are reported as high severity without advice.
func GetFindingInfo(rule Rule) FindingInfo {
	if info, ok := findingInfoMapping[rule]; ok {
		return info
	}
	return FindingInfo{Severity: SeverityHigh}
}

// GetSeverity returns the severity for a rule.
func GetSeverity(rule Rule) Severity {
	return GetFindingInfo(rule).Severity
}
