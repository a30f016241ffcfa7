package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/report-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/report-atlas/pkg/services/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type ExtractCmd struct {
	globals  *GlobalFlags
	reporter *export.Reporter
	logger   zerolog.Logger

	report  string
	params  []string
	timeout time.Duration
	format  string
}

func NewExtractCmd(globals *GlobalFlags, reporter *export.Reporter, logger zerolog.Logger) *cobra.Command {
	ec := &ExtractCmd{globals: globals, reporter: reporter, logger: logger}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a report and print its band tree",
		RunE:  ec.run,
	}

	cmd.Flags().StringVar(&ec.report, "report", "", "Name of the report to extract")
	cmd.Flags().StringArrayVar(&ec.params, "param", nil, "Report parameter as key=value, values may be JSON")
	cmd.Flags().DurationVar(&ec.timeout, "timeout", 0, "Abort the extraction after this duration")
	cmd.Flags().StringVar(&ec.format, "format", export.FormatText, "Output format (text or json)")

	_ = cmd.MarkFlagRequired("report")

	return cmd
}

func (ec *ExtractCmd) run(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()

	params, err := ParseParams(ec.params)
	if err != nil {
		return err
	}

	cfg, err := ec.globals.loadConfig()
	if err != nil {
		return err
	}
	catalog, err := report.LoadCatalog(cfg.ReportsDir)
	if err != nil {
		return err
	}
	def, err := catalog.Get(ec.report)
	if err != nil {
		return err
	}

	loaders, err := newLoaders(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up loaders: %w", err)
	}
	defer func() {
		err = errors.Join(err, loaders.Close(context.WithoutCancel(ctx)))
	}()

	if ec.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ec.timeout)
		defer cancel()
	}

	engine := report.NewEngine(loaders.Registry, report.WithPutEmptyRowIfNoData(cfg.Extraction.PutEmptyRowIfNoData))
	tree, err := engine.Run(ec.logger.WithContext(ctx), def, params)
	if err != nil {
		return err
	}

	return ec.reporter.Handle(tree, ec.format)
}
