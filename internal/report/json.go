package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/exposcan/internal/model"
)

// JSONWriter outputs the run report as JSON.
type JSONWriter struct {
	baseWriter

	indent  bool
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// WithVersion records the generating version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport wraps the run report with output metadata.
type JSONReport struct {
	// Version is the exposcan version that generated the report.
	Version string `json:"version,omitempty"`

	// Severities counts findings per severity label.
	Severities map[string]int `json:"severities"`

	*model.RunReport
}

// Write outputs the report as a single JSON document.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	counts := make(map[string]int)
	for sev, n := range report.CountBySeverity() {
		counts[sev.Label()] = n
	}

	v := JSONReport{
		Version:    w.version,
		Severities: counts,
		RunReport:  report,
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
