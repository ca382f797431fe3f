// Package report renders a finished run.
//
// Writers:
//   - CSVWriter: the default report file, one "severity,url,reason" row per finding
//   - MarkdownWriter: GitHub Flavored Markdown with tables and a severity chart
//   - JSONWriter: the full run report for tool integration
//   - SimpleWriter: the plain-text summary printed to the terminal
//
// Writers implement the Writer interface and can be combined with
// MultiWriter. WriteFile places a report in the output directory under a
// timestamped name.
package report
