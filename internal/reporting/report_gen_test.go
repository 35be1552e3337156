package reporting

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
	"soft404Go/internal/fingerprint"
	"soft404Go/internal/modules/discovery"
)

func init() {
	logger.SetOutput(io.Discard)
}

func testGenerator() *ReportGenerator {
	g := NewReportGenerator(ScanSummary{
		Target:     "http://example.com/<shop>/",
		Requests:   40,
		Suppressed: 38,
		Duration:   1500 * time.Millisecond,
		Findings: []discovery.Finding{
			{URL: "http://example.com/admin", Status: 200, Length: 120, Title: "Admin"},
			{URL: "http://example.com/jam.php", Status: 200, Length: 80},
		},
		Classifier: fingerprint.Stats{
			CorpusSize: 2,
			Decisions:  map[string]int64{"corpus-match": 36, "status-404": 2},
		},
	})
	g.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestRenderMarkdown(t *testing.T) {
	md := testGenerator().RenderMarkdown()
	assert.Contains(t, md, "# Content Discovery Report")
	assert.Contains(t, md, "- Generated: 2024-05-01 12:00:00 UTC")
	assert.Contains(t, md, "| 1 | http://example.com/admin | 200 | 120 | Admin |")
	assert.Contains(t, md, "| Soft 404s suppressed | 38 |")
	assert.Contains(t, md, "| corpus-match | 36 |")
}

func TestRenderHTML_EscapesTarget(t *testing.T) {
	page := testGenerator().RenderHTML()
	assert.Contains(t, page, "<title>soft404 Report - http://example.com/&lt;shop&gt;/</title>")
	assert.Contains(t, page, "<table")
	assert.Contains(t, page, "http://example.com/jam.php")
	assert.NotContains(t, page, "<shop>")
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	g := testGenerator()

	require.NoError(t, g.Generate(filepath.Join(dir, "report.html")))
	data, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")

	require.NoError(t, g.Generate(filepath.Join(dir, "report.md")))

	assert.ErrorIs(t, g.Generate(filepath.Join(dir, "report.pdf")), core.ErrOutputFormat)
	assert.ErrorIs(t, g.Generate(filepath.Join(dir, "nope", "r.md")), core.ErrFileWrite)
}
