package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"

	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
	"soft404Go/internal/fingerprint"
	"soft404Go/internal/modules/discovery"
)

// ScanSummary is everything a report shows about one run.
type ScanSummary struct {
	Target     string
	Requests   int64
	Suppressed int64
	Errors     int64
	Duration   time.Duration
	Findings   []discovery.Finding
	Classifier fingerprint.Stats
}

// ReportGenerator handles generating the HTML and Markdown reports.
type ReportGenerator struct {
	summary ScanSummary
	now     func() time.Time
	log     *logrus.Entry
}

// NewReportGenerator creates a new instance of ReportGenerator.
func NewReportGenerator(summary ScanSummary) *ReportGenerator {
	return &ReportGenerator{
		summary: summary,
		now:     time.Now,
		log:     logger.WithComponent("report"),
	}
}

// Generate writes an HTML report for .html/.htm paths and Markdown otherwise.
func (r *ReportGenerator) Generate(outputPath string) error {
	var content string
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".html", ".htm":
		content = r.RenderHTML()
	case ".md", ".markdown":
		content = r.RenderMarkdown()
	default:
		return fmt.Errorf("%w: report must end in .html or .md, got %s", core.ErrOutputFormat, outputPath)
	}
	r.log.Infof("writing report to %s", outputPath)
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		r.log.Errorf("Failed to write report to %s: %v", outputPath, err)
		return fmt.Errorf("%w: %v", core.ErrFileWrite, err)
	}
	return nil
}

func (r *ReportGenerator) findingsTable() table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "URL", "Status", "Length", "Title"})
	for i, f := range r.summary.Findings {
		t.AppendRow(table.Row{i + 1, f.URL, f.Status, f.Length, f.Title})
	}
	t.AppendFooter(table.Row{"", "Total", len(r.summary.Findings), "", ""})
	return t
}

func (r *ReportGenerator) summaryTable() table.Writer {
	s := r.summary
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Requests", s.Requests},
		{"Findings", len(s.Findings)},
		{"Soft 404s suppressed", s.Suppressed},
		{"Failed requests", s.Errors},
		{"Duration", s.Duration.Truncate(time.Millisecond)},
		{"Known 404 bodies", s.Classifier.CorpusSize},
		{"Fingerprinted directories", s.Classifier.FingerprintedPaths},
		{"Directories using real 404s", s.Classifier.DirectoriesUse404},
		{"Memoized verdicts reused", s.Classifier.MemoHits},
	})
	return t
}

func (r *ReportGenerator) decisionsTable() table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rule", "Decisions"})
	reasons := make([]string, 0, len(r.summary.Classifier.Decisions))
	for reason := range r.summary.Classifier.Decisions {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		t.AppendRow(table.Row{reason, r.summary.Classifier.Decisions[reason]})
	}
	return t
}

// RenderHTML returns a standalone HTML page.
func (r *ReportGenerator) RenderHTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html>
<head>
    <title>soft404 Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; }
        h1 { color: #333; }
        table { border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
        th { background-color: #eee; }
    </style>
</head>
<body>
    <h1>Content Discovery Report</h1>
    <p>Target: %s</p>
    <p>Report generated on: %s</p>
`, html.EscapeString(r.summary.Target), html.EscapeString(r.summary.Target), r.now().Format("2006-01-02 15:04:05 MST"))
	b.WriteString("    <h2>Summary</h2>\n")
	b.WriteString(r.summaryTable().RenderHTML())
	b.WriteString("\n    <h2>Findings</h2>\n")
	b.WriteString(r.findingsTable().RenderHTML())
	if len(r.summary.Classifier.Decisions) > 0 {
		b.WriteString("\n    <h2>Not-found Classifier Decisions</h2>\n")
		b.WriteString(r.decisionsTable().RenderHTML())
	}
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

// RenderMarkdown returns the report as Markdown.
func (r *ReportGenerator) RenderMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Content Discovery Report\n\n")
	fmt.Fprintf(&b, "- Target: %s\n- Generated: %s\n\n", r.summary.Target, r.now().Format("2006-01-02 15:04:05 MST"))
	b.WriteString("## Summary\n\n")
	b.WriteString(r.summaryTable().RenderMarkdown())
	b.WriteString("\n\n## Findings\n\n")
	b.WriteString(r.findingsTable().RenderMarkdown())
	if len(r.summary.Classifier.Decisions) > 0 {
		b.WriteString("\n\n## Not-found Classifier Decisions\n\n")
		b.WriteString(r.decisionsTable().RenderMarkdown())
	}
	b.WriteString("\n")
	return b.String()
}
