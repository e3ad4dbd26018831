package commands

import (
	"fmt"
	"strings"

	"gamemeta-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchSource *string

func init() {
	searchSource = searchCmd.Flags().String("source", "", "Only search the named source.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [--source <name>] <query>",
	Short: "Searches sources for a title and lists candidates by similarity.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := createService()
		query := strings.Join(args, " ")

		ranked, err := svc.Search(cmd.Context(), *searchSource, query)
		if err != nil {
			serviceutil.Fatal("search failed", err)
		}
		if len(ranked) == 0 {
			fmt.Println("no results")
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"Source", "Id", "Title", "Similarity", "Link"})
		for _, c := range ranked {
			t.AppendRow(table.Row{
				c.Source,
				c.Id,
				c.Title,
				fmt.Sprintf("%.3f", c.Similarity),
				c.Href,
			})
		}
		t.Render()
	},
}
