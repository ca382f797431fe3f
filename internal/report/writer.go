package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/exposcan/internal/model"
)

var (
	// ErrWrite wraps every failure to create or write a report file.
	ErrWrite = errors.New("failed to write report")

	// ErrUnknownFormat is returned for an unsupported report format.
	ErrUnknownFormat = errors.New("unknown report format")
)

// Format is a report file format.
type Format string

const (
	// FormatCSV is the default format.
	FormatCSV Format = "csv"
	// FormatMarkdown renders GitHub Flavored Markdown.
	FormatMarkdown Format = "markdown"
	// FormatJSON renders the full run report as JSON.
	FormatJSON Format = "json"
)

// ParseFormat parses a format name case-insensitively. "md" is accepted
// for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "csv"
	}
}

// Filename returns the report file name for a run finished at t,
// e.g. exposcan_report_20250101_1530.csv.
func Filename(format Format, t time.Time) string {
	return fmt.Sprintf("exposcan_report_%s.%s", t.Format("20060102_1504"), format.Extension())
}

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.RunReport) (int, error)
}

// NewWriter returns the writer for format.
func NewWriter(format Format, output io.Writer, version string) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output, WithMarkdownVersion(version)), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile writes the report into dir, creating the directory if needed,
// and returns the absolute path of the file.
func WriteFile(dir string, format Format, report *model.RunReport, version string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}

	path, err := filepath.Abs(filepath.Join(dir, Filename(format, report.FinishedAt)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}

	f, err := os.Create(path) //nolint:gosec // output path is chosen by the user
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}

	w, err := NewWriter(format, f, version)
	if err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return "", err
	}

	if _, err := w.Write(report); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return "", fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}

	return path, nil
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every writer and stops on the first error.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts the bytes passed to the underlying writer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
