package core

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
)

// DashboardStats is one refresh of the live dashboard.
type DashboardStats struct {
	Requests   int64
	Findings   int64
	Suppressed int64
	CorpusSize int
	StartTime  time.Time
}

// RenderDashboard writes one dashboard table to w.
func RenderDashboard(w io.Writer, s DashboardStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"Requests", "Findings", "Suppressed 404s", "Known 404 Bodies", "Rate", "Elapsed"})
	t.AppendRow(table.Row{
		s.Requests,
		s.Findings,
		s.Suppressed,
		s.CorpusSize,
		formatRate(s.Requests, time.Since(s.StartTime)),
		time.Since(s.StartTime).Truncate(time.Second),
	})
	t.Render()
}

// StartLiveDashboard redraws snapshot() every interval until stop is closed.
func StartLiveDashboard(w io.Writer, stop <-chan struct{}, interval time.Duration, snapshot func() DashboardStats) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " Fuzzing..."
	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Lock()
			RenderDashboard(w, snapshot())
			s.Unlock()
		}
	}
}

func formatRate(requests int64, elapsed time.Duration) string {
	if elapsed < time.Second {
		return "-"
	}
	return fmt.Sprintf("%.1f req/s", float64(requests)/elapsed.Seconds())
}
