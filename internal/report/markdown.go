package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/exposcan/internal/model"
)

// MarkdownWriter outputs the run report as GitHub Flavored Markdown.
type MarkdownWriter struct {
	baseWriter

	version string
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownVersion records the generating version in the footer.
func WithMarkdownVersion(version string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.version = version
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	title := cases.Title(language.English)

	w.writeHeader(md, report)
	w.writeSummary(md, report, title)
	w.writeFindings(md, report, title)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Exposure Scan Report")
	md.PlainText("")

	s := report.Stats
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(10 * time.Millisecond).String()},
			{"Seeds", strconv.Itoa(report.Seeds)},
			{"Requests", strconv.FormatInt(s.Requests(), 10)},
			{"Succeeded", strconv.FormatInt(s.Succeeded, 10)},
			{"Failed", strconv.FormatInt(s.Failed, 10)},
			{"Rejected by policy", strconv.FormatInt(s.Rejected, 10)},
			{"Duplicates skipped", strconv.FormatInt(s.Duplicates, 10)},
			{"Static assets ignored", strconv.FormatInt(s.Ignored, 10)},
			{"Branch timeouts", strconv.FormatInt(s.BranchTimeouts, 10)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

func statusText(report *model.RunReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport, title cases.Caser) {
	md.H2("Severity Summary")
	md.PlainText("")

	counts := report.CountBySeverity()
	rows := make([][]string, 0, len(model.AllSeverities())+1)
	for _, sev := range model.AllSeverities() {
		rows = append(rows, []string{severityIcon(sev) + " " + title.String(sev.Label()), strconv.Itoa(counts[sev])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(report.Findings)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.HasFindings() {
		w.writePieChart(md, counts, title)
	}

	w.writeAlert(md, report, counts)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Severity]int, title cases.Caser) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, sev := range model.AllSeverities() {
		if n := counts[sev]; n > 0 {
			chart.LabelAndIntValue(title.String(sev.Label()), uint64(n)) //nolint:gosec // n is positive
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport, counts map[model.Severity]int) {
	switch {
	case counts[model.SeverityCritical] > 0:
		md.Cautionf("%d critical exposure(s) require immediate attention.", counts[model.SeverityCritical])
	case counts[model.SeverityHigh] > 0:
		md.Warningf("%d sensitive resource(s) are publicly reachable.", counts[model.SeverityHigh])
	case report.HasFindings():
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("No exposed sensitive resources detected.")
	}
	if report.Interrupted {
		md.Importantf("The run was interrupted; %d finding(s) were recorded before it stopped.", len(report.Findings))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.RunReport, title cases.Caser) {
	md.H2("Findings")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No sensitive resources detected.")
		md.PlainText("")
		return
	}

	for _, sev := range model.AllSeverities() {
		findings := report.GetFindingsBySeverity(sev)
		if len(findings) == 0 {
			continue
		}

		md.PlainText("### " + severityIcon(sev) + " " + title.String(sev.Label()))
		md.PlainText("")

		rows := make([][]string, len(findings))
		for i, f := range findings {
			rows[i] = []string{
				"`" + truncateString(f.URL, 80) + "`",
				f.Reason,
				strconv.Itoa(f.Depth),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Reason", "Depth"},
			Rows:   rows,
		})
		md.PlainText("")

		w.writeRecommendations(md, findings)
	}
}

// writeRecommendations adds one collapsible block per rule present.
func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, findings []model.Finding) {
	seen := make(map[model.Rule]bool)
	for _, f := range findings {
		if seen[f.Rule] {
			continue
		}
		seen[f.Rule] = true

		info := model.GetFindingInfo(f.Rule)
		if info.Recommendation == "" {
			continue
		}
		md.Details(string(f.Rule), info.Impact+" "+info.Recommendation)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	if w.version != "" {
		md.PlainTextf("*Report generated by exposcan %s*", w.version)
		return
	}
	md.PlainText("*Report generated by exposcan*")
}

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityHigh:
		return "🟠"
	case model.SeverityMedium:
		return "🟡"
	case model.SeverityLow:
		return "🔵"
	default:
		return "⚪"
	}
}

// truncateString truncates a string to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
