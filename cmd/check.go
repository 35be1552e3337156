package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"soft404Go/internal/scan"
	"soft404Go/internal/web"
)

var (
	checkKnown404 []string
	checkWarmup   bool
)

var checkCmd = &cobra.Command{
	Use:   "check <url> [url...]",
	Short: "Fetch URLs and tell which ones are not-found pages.",
	Long: `Fetches every URL and runs it through the not-found classifier. The
first response that needs it triggers a round of probes for random file names
in its directory, so the classifier learns the server's error pages.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sess, err := scan.NewSession(config)
		if err != nil {
			return err
		}
		defer sess.Close()

		for _, raw := range checkKnown404 {
			u, err := web.ParseURL(raw)
			if err != nil {
				return err
			}
			resp, err := sess.Client.Get(ctx, u, web.GetOptions{NoGrep: true})
			if err != nil {
				return fmt.Errorf("fetch known 404 %s: %w", u, err)
			}
			sess.Classifier.AddReference(u, resp.Body)
		}

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Classifying..."
		s.Start()
		if checkWarmup {
			if err := sess.Warmup(ctx, args[0]); err != nil {
				s.Stop()
				return err
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"URL", "Status", "Verdict", "Rule"})
		for _, raw := range args {
			row, err := checkOne(ctx, sess, raw)
			if err != nil {
				s.Stop()
				return err
			}
			t.AppendRow(row)
		}
		s.Stop()
		t.Render()

		st := sess.Classifier.Stats()
		color.Cyan("Known 404 bodies: %d, fingerprinted directories: %d", st.CorpusSize, st.FingerprintedPaths)
		return nil
	},
}

// checkOne returns a table row. Only scan-wide failures are returned as
// errors; a URL that cannot be fetched is reported in its row.
func checkOne(ctx context.Context, sess *scan.Session, raw string) (table.Row, error) {
	u, err := web.ParseURL(raw)
	if err != nil {
		return table.Row{raw, "-", color.RedString("invalid"), err.Error()}, nil
	}
	resp, err := sess.Client.Get(ctx, u, web.GetOptions{UseCache: true})
	if err != nil {
		if sess.Client.Stopped() {
			return nil, err
		}
		return table.Row{u.String(), "-", color.RedString("error"), err.Error()}, nil
	}
	v, err := sess.Classifier.Classify(ctx, resp)
	if err != nil {
		return nil, err
	}
	verdict := color.GreenString("exists")
	if v.NotFound {
		verdict = color.YellowString("not found")
	}
	return table.Row{u.String(), resp.StatusCode, verdict, v.Reason.String()}, nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringSliceVar(&checkKnown404, "known-404", nil, "URLs known to return the not-found page; their bodies seed the classifier")
	checkCmd.Flags().BoolVar(&checkWarmup, "warmup", false, "Probe the first URL's directory before classifying anything")
}
