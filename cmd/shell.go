package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"soft404Go/internal/scan"

	// Import all modules to ensure they're registered
	_ "soft404Go/internal/modules/discovery"
)

type ShellContext struct {
	CurrentModule scan.Plugin
	Options       map[string]interface{}
	Session       *scan.Session
}

// StartShell runs the interactive module shell until exit or EOF. One
// session, and therefore one classifier, serves every module run.
func StartShell(ctx context.Context, in io.Reader, out io.Writer, sess *scan.Session) {
	shellCtx := &ShellContext{Options: map[string]interface{}{}, Session: sess}
	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "\nWelcome to the soft404 shell")
	for {
		prompt := "soft404> "
		if shellCtx.CurrentModule != nil {
			prompt = fmt.Sprintf("soft404 (%s)> ", shellCtx.CurrentModule.Name())
		}
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "exit" || line == "quit" || (err != nil && line == "") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "search":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: search <keyword>")
				continue
			}
			kw := strings.ToLower(args[1])
			for _, p := range scan.ListPlugins() {
				if strings.Contains(strings.ToLower(p.Name()), kw) || strings.Contains(strings.ToLower(p.Description()), kw) {
					fmt.Fprintf(out, "%s\t%s\t%s\n", p.Category(), p.Name(), p.Description())
				}
			}
		case "use":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: use <module>")
				continue
			}
			p, err := scan.GetPlugin(args[1])
			if err != nil {
				fmt.Fprintln(out, "Module not found.")
				continue
			}
			shellCtx.CurrentModule = p
			shellCtx.Options = map[string]interface{}{}
			fmt.Fprintf(out, "Module '%s' selected. Type 'info' to see options.\n", p.Name())
		case "info":
			if shellCtx.CurrentModule == nil {
				fmt.Fprintln(out, "No module selected.")
				continue
			}
			m := shellCtx.CurrentModule
			fmt.Fprintf(out, "\nModule: %s\nDescription: %s\nCategory: %s\n", m.Name(), m.Description(), m.Category())
			printOptions(out, shellCtx)
		case "show":
			if len(args) < 2 || args[1] != "options" {
				fmt.Fprintln(out, "Usage: show options")
				continue
			}
			if shellCtx.CurrentModule == nil {
				fmt.Fprintln(out, "No module selected.")
				continue
			}
			printOptions(out, shellCtx)
		case "set":
			if shellCtx.CurrentModule == nil {
				fmt.Fprintln(out, "No module selected. Use 'use <module>' first.")
				continue
			}
			if len(args) < 3 {
				fmt.Fprintln(out, "Usage: set <option> <value>")
				continue
			}
			opt, val := args[1], strings.Join(args[2:], " ")
			valid := false
			for _, o := range shellCtx.CurrentModule.Options() {
				if o.Name == opt {
					valid = true
					break
				}
			}
			if !valid {
				fmt.Fprintf(out, "Invalid option '%s'. Use 'info' to see available options.\n", opt)
				continue
			}
			shellCtx.Options[opt] = val
			fmt.Fprintf(out, "Set %s = %s\n", opt, val)
		case "run":
			if shellCtx.CurrentModule == nil {
				fmt.Fprintln(out, "No module selected.")
				continue
			}
			var missing []string
			for _, o := range shellCtx.CurrentModule.Options() {
				if _, ok := shellCtx.Options[o.Name]; o.Required && !ok {
					missing = append(missing, o.Name)
				}
			}
			if len(missing) > 0 {
				fmt.Fprintf(out, "Missing required options: %s\n", strings.Join(missing, ", "))
				continue
			}
			target := scan.OptionString(shellCtx.Options, "target", "")
			fmt.Fprintf(out, "Running %s against %s...\n", shellCtx.CurrentModule.Name(), target)
			res, err := shellCtx.CurrentModule.Run(ctx, shellCtx.Session, target, shellCtx.Options)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			if res != nil {
				fmt.Fprintf(out, "Result: %v\n", res)
			}
		case "stats":
			printClassifierStats(out, shellCtx.Session)
		case "back":
			shellCtx.CurrentModule = nil
			shellCtx.Options = map[string]interface{}{}
			fmt.Fprintln(out, "Back to main shell.")
		default:
			fmt.Fprintln(out, "Unknown command. Try: search, use, set, info, show options, run, stats, back, exit")
		}
	}
}

func printOptions(out io.Writer, shellCtx *ShellContext) {
	fmt.Fprintln(out, "\nOptions:")
	options := shellCtx.CurrentModule.Options()
	if len(options) == 0 {
		fmt.Fprintln(out, "  No configurable options for this module.")
		return
	}
	fmt.Fprintf(out, "  %-15s %-10s %-15s %s\n", "Name", "Required", "Current Value", "Description")
	fmt.Fprintf(out, "  %-15s %-10s %-15s %s\n", "----", "--------", "-------------", "-----------")
	for _, opt := range options {
		required := "no"
		if opt.Required {
			required = "yes"
		}
		currentVal := opt.Default
		if val, ok := shellCtx.Options[opt.Name]; ok {
			currentVal = val
		}
		fmt.Fprintf(out, "  %-15s %-10s %-15v %s\n", opt.Name, required, currentVal, opt.Description)
	}
}

func printClassifierStats(out io.Writer, sess *scan.Session) {
	st := sess.Classifier.Stats()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Known 404 bodies", st.CorpusSize},
		{"Fingerprinted directories", st.FingerprintedPaths},
		{"Directories using real 404s", st.DirectoriesUse404},
		{"Memoized verdicts", st.MemoSize},
		{"Memo hits", st.MemoHits},
	})
	reasons := make([]string, 0, len(st.Decisions))
	for r := range st.Decisions {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		t.AppendRow(table.Row{"decided by " + r, st.Decisions[r]})
	}
	t.Render()
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Interactive module shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := scan.NewSession(config)
			if err != nil {
				return err
			}
			defer sess.Close()
			StartShell(cmd.Context(), os.Stdin, os.Stdout, sess)
			return nil
		},
	})
}
