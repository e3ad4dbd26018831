package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gamemeta-backend/lib/metadata"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url-or-query>...",
	Short: "Resolves references into canonical records. Queries take the top candidate of the highest-priority source.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := createService()

		failures := 0
		for _, ref := range args {
			record, err := svc.Resolve(cmd.Context(), ref)
			if errors.Is(err, metadata.ErrUnrecognizedReference) {
				slog.Error("reference not recognized by any source", "ref", ref)
				failures++
				continue
			}
			if errors.Is(err, metadata.ErrNotFound) {
				slog.Error("no record found", "ref", ref)
				failures++
				continue
			}
			if err != nil {
				slog.Error("failed to resolve", "ref", ref, "err", err)
				failures++
				continue
			}
			renderRecord(record)
		}

		if failures > 0 {
			slog.Warn("some references failed to resolve", "failed", failures, "total", len(args))
		}
	},
}

func renderRecord(record *metadata.Record) {
	t := newTable()
	t.AppendHeader(table.Row{"Field", "Value"})

	t.AppendRow(table.Row{"Link", record.Link})
	appendStringRow(t, "Title", record.Title)
	appendStringRow(t, "Maker", record.Maker)
	appendStringRow(t, "Series", record.Series)
	appendStringRow(t, "Game Genre", record.GameGenre)
	appendStringRow(t, "Age Rating", record.AgeRating)
	appendListRow(t, "Genres", record.Genres)
	appendListRow(t, "Categories", record.Categories)
	appendListRow(t, "Illustrators", record.Illustrators)
	appendListRow(t, "Scenario", record.ScenarioWriters)
	appendListRow(t, "Voices", record.VoiceActors)
	appendListRow(t, "Music", record.MusicCreators)
	appendDateRow(t, "Released", record.DateReleased)
	appendDateRow(t, "Updated", record.DateUpdated)
	if record.Rating != nil {
		t.AppendRow(table.Row{"Rating", fmt.Sprintf("%.2f / 5", *record.Rating)})
	}
	if record.Adult != nil {
		t.AppendRow(table.Row{"Adult", *record.Adult})
	}
	appendStringRow(t, "Cover", record.CoverUrl)
	appendStringRow(t, "Icon", record.IconUrl)
	if len(record.PreviewImageUrls) > 0 {
		t.AppendRow(table.Row{"Previews", fmt.Sprintf("%d image(s)", len(record.PreviewImageUrls))})
	}

	t.Render()
}

func appendStringRow(t table.Writer, name string, value *string) {
	if value == nil {
		return
	}
	t.AppendRow(table.Row{name, *value})
}

func appendListRow(t table.Writer, name string, values []string) {
	if len(values) == 0 {
		return
	}
	t.AppendRow(table.Row{name, strings.Join(values, ", ")})
}

func appendDateRow(t table.Writer, name string, value *time.Time) {
	if value == nil {
		return
	}
	t.AppendRow(table.Row{name, value.Format(time.DateOnly)})
}
