package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"soft404Go/internal/modules/discovery"
	"soft404Go/internal/output"
	"soft404Go/internal/scan"
)

var (
	crawlDepth    int
	crawlMaxPages int
	crawlFormat   string
	crawlOutput   string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Crawl a site and list only the pages that really exist.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sess, err := scan.NewSession(config)
		if err != nil {
			return err
		}
		defer sess.Close()

		color.Cyan("Crawling %s (depth %d)", args[0], crawlDepth)
		crawlConfig := discovery.NewCrawlConfig(config)
		crawlConfig.MaxDepth = crawlDepth
		crawlConfig.MaxPages = crawlMaxPages
		res, err := discovery.Crawl(ctx, sess.NotFound(), args[0], crawlConfig)
		if res == nil {
			return err
		}
		if err != nil {
			color.Red("Crawl stopped early: %v", err)
		}

		out, ferr := output.FormatFindings(res.Findings, res.Target, crawlFormat)
		if ferr != nil {
			return ferr
		}
		if crawlOutput != "" {
			if werr := output.WriteOutput(crawlOutput, out); werr != nil {
				return werr
			}
		} else {
			fmt.Println(out)
		}
		color.Cyan("%d pages visited, %d not-found pages hidden", res.Visited, len(res.Suppressed))
		return err
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().IntVarP(&crawlDepth, "depth", "d", 2, "Maximum link depth")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "Stop after this many pages (0 = no limit)")
	crawlCmd.Flags().StringVarP(&crawlFormat, "format", "f", "console", "Output format: console, json, txt, csv")
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "Write results to this file instead of stdout")
}
