package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Lists registered sources in resolution priority order.",
	Run: func(cmd *cobra.Command, args []string) {
		svc := createService()

		t := newTable()
		t.AppendHeader(table.Row{"Priority", "Source"})
		for i, name := range svc.Sources() {
			t.AppendRow(table.Row{i + 1, name})
		}
		t.Render()
	},
}
