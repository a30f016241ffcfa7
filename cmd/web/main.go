package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/de-tools/report-atlas/pkg/server"
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/de-tools/report-atlas/pkg/services/registry"
	"github.com/de-tools/report-atlas/pkg/services/report"
	"github.com/de-tools/report-atlas/pkg/services/run"
	"github.com/de-tools/report-atlas/pkg/services/schedule"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
	runstore "github.com/de-tools/report-atlas/pkg/store/duckdb/run"
	"github.com/de-tools/report-atlas/pkg/store/rest"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// runsDataSource exposes the run history database to sql report queries.
const runsDataSource = "runs"

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the report extraction web server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the YAML config file (REPORTS_* environment variables override it)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps := registry.Dependencies{
		Rest: rest.Settings{
			RetryMax: cfg.Rest.RetryMax,
			Timeout:  cfg.Rest.Timeout,
		},
	}
	if cfg.DataSourcesFile != "" {
		sources, err := config.NewDataSourceRegistry(cfg.DataSourcesFile)
		if err != nil {
			return fmt.Errorf("failed to load data sources: %w", err)
		}
		deps.DataSources = sources

		names, err := sources.GetDataSources(ctx)
		if err != nil {
			logger.Error().Err(err).Msgf("Failed to list data sources from `%s`", cfg.DataSourcesFile)
		} else {
			logger.Info().Strs("data_sources", names).Msgf("Data sources loaded from `%s`", cfg.DataSourcesFile)
		}
	}

	loaders, err := registry.NewLoaders(deps)
	if err != nil {
		return fmt.Errorf("failed to register loaders: %w", err)
	}

	catalog, err := report.LoadCatalog(cfg.ReportsDir)
	if err != nil {
		return fmt.Errorf("failed to load reports: %w", err)
	}
	for _, def := range catalog.List() {
		logger.Info().Msgf("Report `%s` loaded", def.Name)
	}

	engine := report.NewEngine(
		loaders.Registry,
		report.WithPutEmptyRowIfNoData(cfg.Extraction.PutEmptyRowIfNoData),
	)

	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath: cfg.RunDBPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}
	// The pool owns db from here on and closes it with the loaders.
	loaders.SQLPool().Add(runsDataSource, db, loader.PlaceholderQuestion)

	runStore, err := runstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	runCtrl := run.NewController(catalog, engine, runStore)
	if err = runCtrl.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize run controller: %w", err)
	}

	scheduler, err := schedule.NewScheduler(ctx, runCtrl, cfg.Schedules)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	scheduler.Start()

	api := server.NewWebAPI(logger, server.Config{
		Addr: cfg.Addr(),
		Dependencies: server.Dependencies{
			Catalog: catalog,
			Engine:  engine,
			Runs:    runCtrl,
		},
		OnShutdown: func(ctx context.Context) error {
			return errors.Join(
				scheduler.Stop(ctx),
				runCtrl.Shutdown(ctx),
				loaders.Close(ctx),
			)
		},
	})

	return api.Start()
}
