package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/exposcan/internal/model"
)

// csvHeader is the header row of the CSV report.
var csvHeader = []string{"severity", "url", "reason"}

// CSVWriter writes one row per finding. A run without findings produces a
// file with only the header row.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the findings as CSV.
func (w *CSVWriter) Write(report *model.RunReport) (int, error) {
	cw := &countingWriter{w: w.output}
	out := csv.NewWriter(cw)

	if err := out.Write(csvHeader); err != nil {
		return cw.n, err
	}
	for _, f := range report.Findings {
		if err := out.Write([]string{f.Severity.Label(), f.URL, f.Reason}); err != nil {
			return cw.n, err
		}
	}

	out.Flush()
	return cw.n, out.Error()
}
