package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"soft404Go/internal/scan"

	// Import all modules to ensure they're registered
	_ "soft404Go/internal/modules/discovery"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List all registered modules.",
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Category", "Name", "Description"})
		plugins := scan.ListPlugins()
		for _, p := range plugins {
			t.AppendRow(table.Row{p.Category(), p.Name(), p.Description()})
		}
		t.AppendFooter(table.Row{"", "Total", len(plugins)})
		t.Render()
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}
