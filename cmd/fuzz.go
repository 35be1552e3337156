package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"soft404Go/internal/core"
	"soft404Go/internal/modules/discovery"
	"soft404Go/internal/output"
	"soft404Go/internal/reporting"
	"soft404Go/internal/scan"
)

var (
	fuzzTarget     string
	fuzzWordlist   string
	fuzzExtensions []string
	fuzzFormat     string
	fuzzOutput     string
	fuzzReport     string
	fuzzDashboard  bool
	fuzzNoProgress bool
)

var fuzzCmd = &cobra.Command{
	Use:   "fuzz",
	Short: "Brute force files and directories, hiding soft 404s.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		source := fuzzWordlist
		if source == "" {
			source = config.Wordlist
		}
		words, err := core.ResolveWordlist(source)
		if err != nil {
			return err
		}
		exts := fuzzExtensions
		if len(exts) == 0 {
			exts = config.Extensions
		}

		sess, err := scan.NewSession(config)
		if err != nil {
			return err
		}
		defer sess.Close()

		total := len(core.ExpandWordlist(words, exts))
		color.Cyan("Fuzzing %s with %d paths", fuzzTarget, total)

		var findings, suppressed atomic.Int64
		var bar *progressbar.ProgressBar
		if !fuzzNoProgress && !fuzzDashboard {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetDescription("[cyan]Fuzzing...[reset]"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
			)
		}
		started := time.Now()
		dashStop := make(chan struct{})
		dashDone := make(chan struct{})
		if fuzzDashboard {
			go func() {
				defer close(dashDone)
				core.StartLiveDashboard(os.Stderr, dashStop, time.Second, func() core.DashboardStats {
					return core.DashboardStats{
						Requests:   sess.Fetched(),
						Findings:   findings.Load(),
						Suppressed: suppressed.Load(),
						CorpusSize: sess.Classifier.Stats().CorpusSize,
						StartTime:  started,
					}
				})
			}()
		} else {
			close(dashDone)
		}

		res, runErr := discovery.DirFuzzer(ctx, sess.Fetcher(), sess.NotFound(), fuzzTarget, &discovery.DirFuzzerConfig{
			Wordlist:   words,
			Extensions: exts,
			Threads:    config.Threads,
			OnResult: func(_ string, f *discovery.Finding, err error) {
				switch {
				case f != nil:
					findings.Add(1)
				case err == nil:
					suppressed.Add(1)
				}
				if bar != nil {
					_ = bar.Add(1)
				}
			},
		})
		close(dashStop)
		<-dashDone
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		if res == nil {
			return runErr
		}
		if runErr != nil {
			color.Red("Scan stopped early: %v", runErr)
		}

		out, err := output.FormatFindings(res.Findings, res.Target, fuzzFormat)
		if err != nil {
			return err
		}
		if fuzzOutput != "" {
			if err := output.WriteOutput(fuzzOutput, out); err != nil {
				return err
			}
			color.Green("Results written to %s", fuzzOutput)
		} else {
			fmt.Println(out)
		}

		if fuzzReport != "" {
			gen := reporting.NewReportGenerator(reporting.ScanSummary{
				Target:     res.Target,
				Requests:   res.Requests,
				Suppressed: res.Suppressed,
				Errors:     res.Errors,
				Duration:   res.Duration,
				Findings:   res.Findings,
				Classifier: sess.Classifier.Stats(),
			})
			if err := gen.Generate(fuzzReport); err != nil {
				return err
			}
			color.Green("Report written to %s", fuzzReport)
		}
		color.Cyan("%d requests, %d found, %d soft 404s suppressed in %s",
			res.Requests, len(res.Findings), res.Suppressed, res.Duration.Truncate(time.Millisecond))
		if errors.Is(runErr, core.ErrNoFetcher) {
			return runErr
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fuzzCmd)
	fuzzCmd.Flags().StringVarP(&fuzzTarget, "target", "u", "", "Base URL to fuzz (required)")
	fuzzCmd.Flags().StringVarP(&fuzzWordlist, "wordlist", "w", "", "Built-in list (directories, files, backups) or wordlist file")
	fuzzCmd.Flags().StringSliceVarP(&fuzzExtensions, "extensions", "x", nil, "Extensions appended to every word, e.g. php,bak")
	fuzzCmd.Flags().StringVarP(&fuzzFormat, "format", "f", "console", "Output format: console, json, txt, csv")
	fuzzCmd.Flags().StringVarP(&fuzzOutput, "output", "o", "", "Write results to this file instead of stdout")
	fuzzCmd.Flags().StringVar(&fuzzReport, "report", "", "Also write an HTML (.html) or Markdown (.md) report")
	fuzzCmd.Flags().BoolVar(&fuzzDashboard, "dashboard", false, "Show a live dashboard instead of a progress bar")
	fuzzCmd.Flags().BoolVar(&fuzzNoProgress, "no-progress", false, "Disable the progress bar")
	fuzzCmd.MarkFlagRequired("target")
}
