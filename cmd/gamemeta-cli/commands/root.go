package commands

import (
	"context"
	"fmt"
	"os"

	"gamemeta-backend/lib/configutil"
	"gamemeta-backend/lib/fetch"
	"gamemeta-backend/lib/metadata"
	"gamemeta-backend/lib/scrapers/dlsite"
	"gamemeta-backend/lib/scrapers/fanza"
	"gamemeta-backend/lib/scrapers/getchu"
	"gamemeta-backend/lib/telemetry"
	"gamemeta-backend/lib/util/serviceutil"
	metadatasvc "gamemeta-backend/services/metadata"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	// locale requested from sources that support one, e.g. "ja_JP"
	Locale string `json:"locale"`
	// per-source cap on listing search results
	MaxResults int `json:"max_results"`
	// regexes matched against genre/category values to drop storefront
	// noise like point campaigns
	TagFilters []string `json:"tag_filters"`
}

var configPath *string
var verbose *bool
var dumpHttp *string

var rootCmd = &cobra.Command{
	Use:   "gamemeta-cli",
	Short: "gamemeta-cli resolves game metadata from storefront sources.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
		if *dumpHttp != "" {
			fetch.SetDumpOutput(fetch.NewFilesystemOutput(*dumpHttp))
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file to read.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
	dumpHttp = rootCmd.PersistentFlags().String("dump-http", "", "Write http transcripts to this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}
		}
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

// adapter registration order is resolution priority order
func createService() metadatasvc.Service {
	cfg := readConfig()

	dlsiteAdapter, err := dlsite.NewAdapter(dlsite.AdapterOptions{
		Locale:     cfg.Locale,
		MaxResults: cfg.MaxResults,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize dlsite adapter", err)
	}
	fanzaAdapter, err := fanza.NewAdapter(fanza.AdapterOptions{})
	if err != nil {
		serviceutil.Fatal("failed to initialize fanza adapter", err)
	}
	getchuAdapter, err := getchu.NewAdapter(getchu.AdapterOptions{
		MaxResults: cfg.MaxResults,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize getchu adapter", err)
	}

	svc, err := metadatasvc.NewService(metadatasvc.ServiceOptions{
		Aggregator: metadata.NewAggregator(dlsiteAdapter, fanzaAdapter, getchuAdapter),
		TagFilters: cfg.TagFilters,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize metadata service", err)
	}
	return svc
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
