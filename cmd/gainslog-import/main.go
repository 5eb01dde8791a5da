package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/gainslog/internal/config"
	"github.com/meltforce/gainslog/internal/importer"
	"github.com/meltforce/gainslog/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "path to Alpha Progression CSV export, optionally .gz (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: gainslog-import -config config.yaml -path export.csv [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	ctx := context.Background()
	store := storage.New(cfg.Database.Store(), log)
	if err := store.Open(ctx); err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	rc, err := importer.OpenExport(*exportPath)
	if err != nil {
		log.Error("failed to open export", "error", err)
		os.Exit(1)
	}
	defer rc.Close()

	stats, err := importer.New(store, log, *dryRun).Import(ctx, rc)
	printStats(log, stats)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"sessions_parsed", stats.SessionsParsed,
		"sessions_inserted", stats.SessionsInserted,
		"sessions_duplicated", stats.SessionsDuplicated,
		"sessions_empty", stats.SessionsEmpty,
		"warmups_skipped", stats.WarmupsSkipped,
		"records_advanced", stats.RecordsAdvanced,
	)
}
