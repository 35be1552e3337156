package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
)

var (
	verbose    bool
	version    = "0.1.0"
	configPath string
	logFormat  string
	config     = core.DefaultConfig()

	flagAlways404   []string
	flagNever404    []string
	flagStringMatch string
	flagThreads     int
	flagTimeout     string
	flagRPS         float64
	flagProxy       string
	flagInsecure    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "soft404",
	Short: "soft404: content discovery that sees through custom 404 pages.",
	Long: `soft404 brute forces and crawls web servers while learning what the
server's "not found" pages look like. Servers that answer 200 for missing
resources, or render the requested path into an error template, no longer
flood the results with false positives.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger.SetupLogger("debug")
		} else {
			logger.SetupLogger("info")
		}
		logger.SetupFormat(logFormat)
		applyFlagOverrides(cmd)
		return config.Validate()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	printBanner()
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfigOrExit() {
	if configPath == "" {
		return
	}
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	config = cfg
}

// applyFlagOverrides copies explicitly set flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("always-404") {
		config.Always404 = append(config.Always404, flagAlways404...)
	}
	if flags.Changed("never-404") {
		config.Never404 = append(config.Never404, flagNever404...)
	}
	if flags.Changed("string-match") {
		config.NotFoundString = flagStringMatch
	}
	if flags.Changed("threads") {
		config.Threads = flagThreads
	}
	if flags.Changed("timeout") {
		config.Timeout = flagTimeout
	}
	if flags.Changed("rps") {
		config.RequestsPerSecond = flagRPS
	}
	if flags.Changed("proxy") {
		config.Proxy = flagProxy
	}
	if flags.Changed("insecure") {
		config.Insecure = flagInsecure
	}
}

func printBanner() {
	banner := `
            __ _   _  _    ___  _  _
  ___  ___ / _| |_| || |  / _ \| || |
 (_-< / _ \  _|  _|_  _|| (_) |_  _|
 /__/ \___/_|  \__| |_|  \___/  |_|
`
	color.Cyan(banner)
	color.Magenta("soft404 v%s - content discovery without the soft 404 noise", version)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringSliceVar(&flagAlways404, "always-404", nil, "Directory URLs whose responses are always not-found")
	rootCmd.PersistentFlags().StringSliceVar(&flagNever404, "never-404", nil, "Directory URLs whose responses are never not-found")
	rootCmd.PersistentFlags().StringVar(&flagStringMatch, "string-match", "", "Body text that marks a not-found page")
	rootCmd.PersistentFlags().IntVarP(&flagThreads, "threads", "t", 10, "Concurrent requests")
	rootCmd.PersistentFlags().StringVar(&flagTimeout, "timeout", "10s", "Per-request timeout")
	rootCmd.PersistentFlags().Float64Var(&flagRPS, "rps", 0, "Requests per second (0 = unlimited)")
	rootCmd.PersistentFlags().StringVar(&flagProxy, "proxy", "", "HTTP proxy URL")
	rootCmd.PersistentFlags().BoolVarP(&flagInsecure, "insecure", "k", false, "Skip TLS certificate verification")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Version}}\r\n")

	cobra.OnInitialize(loadConfigOrExit)
}
