package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/exposcan/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.RunReport {
	start := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	stats := model.Stats{
		StartedAt:  start,
		Elapsed:    12*time.Second + 400*time.Millisecond,
		Scheduled:  41,
		Succeeded:  40,
		Failed:     2,
		Rejected:   1,
		Duplicates: 5,
		Findings:   2,
	}
	findings := []model.Finding{
		model.NewFinding("http://example.com/.env", model.RuleExtension, "sensitive extension: env", 0),
		model.NewFinding("http://example.com/backup.sql.zip", model.RuleCompoundArchive, "compound archive: sql+zip", 1),
	}
	return model.NewRunReport("run-1234", 3, stats, findings, false)
}

// TestFilename tests report file naming.
func TestFilename(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		format Format
		want   string
	}{
		{FormatCSV, "exposcan_report_20250102_0304.csv"},
		{FormatMarkdown, "exposcan_report_20250102_0304.md"},
		{FormatJSON, "exposcan_report_20250102_0304.json"},
	}

	for _, tt := range tests {
		if got := Filename(tt.format, ts); got != tt.want {
			t.Errorf("Filename(%s) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

// TestParseFormat tests format parsing.
func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, "md": FormatMarkdown, "markdown": FormatMarkdown, "json": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

// TestCSVWriter tests the CSV report.
func TestCSVWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and one row per finding", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewCSVWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		want := [][]string{
			{"severity", "url", "reason"},
			{"high", "http://example.com/.env", "sensitive extension: env"},
			{"high", "http://example.com/backup.sql.zip", "compound archive: sql+zip"},
		}
		if len(records) != len(want) {
			t.Fatalf("expected %d records, got %d: %v", len(want), len(records), records)
		}
		for i := range want {
			if !slices.Equal(records[i], want[i]) {
				t.Errorf("record %d = %v, want %v", i, records[i], want[i])
			}
		}
	})

	t.Run("quotes fields containing commas", func(t *testing.T) {
		t.Parallel()

		r := model.NewRunReport("r", 1, model.Stats{}, []model.Finding{
			model.NewFinding("http://example.com/a,b.sql", model.RuleExtension, "sensitive extension: sql", 0),
		}, false)

		var buf bytes.Buffer
		if _, err := NewCSVWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"http://example.com/a,b.sql"`) {
			t.Errorf("expected quoted URL, got %s", buf.String())
		}
	})

	t.Run("no findings writes only the header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewCSVWriter(&buf).Write(model.NewRunReport("r", 1, model.Stats{}, nil, false)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "severity,url,reason\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

// TestJSONWriter tests the JSON report.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("v1.2.3")).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Version    string          `json:"version"`
		RunID      string          `json:"run_id"`
		Severities map[string]int  `json:"severities"`
		Findings   []model.Finding `json:"findings"`
		Stats      model.Stats     `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if decoded.Version != "v1.2.3" || decoded.RunID != "run-1234" {
		t.Errorf("unexpected metadata %+v", decoded)
	}
	if decoded.Severities["high"] != 2 {
		t.Errorf("expected 2 high findings, got %v", decoded.Severities)
	}
	if len(decoded.Findings) != 2 || decoded.Findings[0].Severity != model.SeverityHigh {
		t.Errorf("unexpected findings %+v", decoded.Findings)
	}
	if decoded.Stats.Succeeded != 40 {
		t.Errorf("unexpected stats %+v", decoded.Stats)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

// TestMarkdownWriter tests the Markdown report.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders summary and findings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithMarkdownVersion("v1.2.3")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Exposure Scan Report",
			"run-1234",
			"## Severity Summary",
			"High",
			"mermaid",
			"http://example.com/.env",
			"compound archive: sql+zip",
			"[!WARNING]",
			"exposcan v1.2.3",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("empty and interrupted run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := model.NewRunReport("r", 1, model.Stats{}, nil, true)
		if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No sensitive resources detected.") {
			t.Error("expected empty findings message")
		}
		if !strings.Contains(output, "Interrupted") {
			t.Error("expected interrupted status")
		}
		if strings.Contains(output, "mermaid") {
			t.Error("expected no chart without findings")
		}
	})
}

// TestSimpleWriter tests the terminal summary.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("summary line", func(t *testing.T) {
		t.Parallel()

		got := SummaryLine(createTestReport())
		want := "Scan complete: 42 requests (40 ok, 2 failed), 2 findings in 12.4s"
		if got != want {
			t.Errorf("SummaryLine() = %q, want %q", got, want)
		}
	})

	t.Run("lists findings when enabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithFindings(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[high] http://example.com/.env (sensitive extension: env)") {
			t.Errorf("expected finding line, got %s", output)
		}
		if !strings.Contains(output, "duplicates: 5") {
			t.Errorf("expected counters line, got %s", output)
		}
	})

	t.Run("interrupted run", func(t *testing.T) {
		t.Parallel()

		r := model.NewRunReport("r", 1, model.Stats{}, nil, true)
		if !strings.HasPrefix(SummaryLine(r), "Scan interrupted:") {
			t.Errorf("unexpected summary %q", SummaryLine(r))
		}
	})
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var csvBuf, textBuf bytes.Buffer
	mw := NewMultiWriter(NewCSVWriter(&csvBuf), NewSimpleWriter(&textBuf))

	n, err := mw.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != csvBuf.Len()+textBuf.Len() {
		t.Errorf("expected %d bytes, got %d", csvBuf.Len()+textBuf.Len(), n)
	}
	if csvBuf.Len() == 0 || textBuf.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}

// TestWriteFile tests writing a report into the output directory.
func TestWriteFile(t *testing.T) {
	t.Parallel()

	t.Run("creates directory and timestamped file", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "reports", "nested")
		report := createTestReport()

		path, err := WriteFile(dir, FormatCSV, report, "dev")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !filepath.IsAbs(path) {
			t.Errorf("expected absolute path, got %q", path)
		}
		if filepath.Base(path) != Filename(FormatCSV, report.FinishedAt) {
			t.Errorf("unexpected file name %q", filepath.Base(path))
		}

		data, err := os.ReadFile(path) //nolint:gosec // test file
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.HasPrefix(string(data), "severity,url,reason\n") {
			t.Errorf("unexpected content %q", data)
		}
	})

	t.Run("unwritable directory", func(t *testing.T) {
		t.Parallel()

		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}

		_, err := WriteFile(filepath.Join(blocker, "sub"), FormatCSV, createTestReport(), "dev")
		if !errors.Is(err, ErrWrite) {
			t.Errorf("expected ErrWrite, got %v", err)
		}
	})
}

// TestTruncateString tests the truncateString helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
