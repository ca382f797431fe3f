// Package model defines the data structures shared by the scanner,
// the report writers and the run history database.
//
// This package contains the following main types:
//   - Finding: a recorded detection of a sensitive resource
//   - Stats: a point-in-time copy of the run counters
//   - RunReport: everything a report writer needs about one run
//   - Severity and Rule: grading of findings
//
// The models are serializable to JSON for report output and database storage.
package model
