package commands

import (
	"fmt"
	"strings"

	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/spf13/cobra"
)

type LoadersCmd struct {
	globals *GlobalFlags
}

func NewLoadersCmd(globals *GlobalFlags) *cobra.Command {
	lc := &LoadersCmd{globals: globals}
	return &cobra.Command{
		Use:   "loaders",
		Short: "List the registered loader types and configured data sources",
		RunE:  lc.run,
	}
}

func (lc *LoadersCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := lc.globals.loadConfig()
	if err != nil {
		return err
	}
	loaders, err := newLoaders(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = loaders.Close(ctx) }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Loader types:\n%s\n", strings.Join(loaders.Registry.ListTypes(), "\n"))

	if cfg.DataSourcesFile == "" {
		return nil
	}
	sources, err := config.NewDataSourceRegistry(cfg.DataSourcesFile)
	if err != nil {
		return err
	}
	names, err := sources.GetDataSources(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No data sources configured")
		return nil
	}

	fmt.Fprintln(out, "Data sources:")
	for _, name := range names {
		ds, err := sources.GetDataSource(ctx, name)
		if err != nil {
			return fmt.Errorf("invalid data source %s: %w", name, err)
		}
		fmt.Fprintf(out, "%s (%s)\n", ds.Name, ds.Driver)
	}
	return nil
}
