package commands

import (
	"gamemeta-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var fetchSource *string

func init() {
	fetchSource = fetchCmd.Flags().String("source", "", "The source to fetch from.")
	fetchCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch --source <name> <url>",
	Short: "Fetches a record from a named source directly, skipping reference routing.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := createService()

		record, err := svc.Fetch(cmd.Context(), *fetchSource, args[0])
		if err != nil {
			serviceutil.Fatal("fetch failed", err)
		}
		renderRecord(record)
	},
}
