package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/exposcan/internal/model"
)

// SimpleWriter prints the plain-text run summary shown on the terminal.
type SimpleWriter struct {
	baseWriter

	// showFindings lists every finding below the summary line.
	showFindings bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithFindings lists every finding below the summary line.
func WithFindings(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showFindings = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// SummaryLine returns the one-line outcome of a run, e.g.
// "Scan complete: 42 requests (40 ok, 2 failed), 3 findings in 12.4s".
func SummaryLine(report *model.RunReport) string {
	status := "complete"
	if report.Interrupted {
		status = "interrupted"
	}

	s := report.Stats
	return fmt.Sprintf("Scan %s: %d requests (%d ok, %d failed), %d findings in %s",
		status,
		s.Requests(),
		s.Succeeded,
		s.Failed,
		len(report.Findings),
		report.Duration().Round(100*time.Millisecond))
}

// Write outputs the summary and, when enabled, the findings.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(SummaryLine(report))
	sb.WriteString("\n")

	s := report.Stats
	if s.Rejected > 0 || s.Duplicates > 0 || s.Ignored > 0 || s.BranchTimeouts > 0 {
		fmt.Fprintf(&sb, "  rejected: %d, duplicates: %d, ignored: %d, branch timeouts: %d\n",
			s.Rejected, s.Duplicates, s.Ignored, s.BranchTimeouts)
	}

	if w.showFindings && report.HasFindings() {
		sb.WriteString("\n")
		for _, f := range report.Findings {
			fmt.Fprintf(&sb, "  [%s] %s (%s)\n", f.Severity.Label(), f.URL, f.Reason)
		}
	}

	return w.output.Write([]byte(sb.String()))
}
