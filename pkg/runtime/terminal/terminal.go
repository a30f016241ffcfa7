package terminal

import (
	"io"
	"os"

	"github.com/de-tools/report-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/report-atlas/pkg/runtime/terminal/export"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	logger   zerolog.Logger
	reporter *export.Reporter
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
	Logger zerolog.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		logger:   opts.Logger,
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// SetArgs overrides os.Args, mostly for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	globals := &commands.GlobalFlags{}

	cmd := &cobra.Command{
		Use:           "reports",
		Short:         "Banded report extraction tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&globals.ReportsDir, "reports", "", "Directory with report definitions")
	cmd.PersistentFlags().StringVar(&globals.DataSourcesFile, "datasources", "", "Path to the data source INI file")

	cmd.AddCommand(commands.NewExtractCmd(globals, cli.reporter, cli.logger))
	cmd.AddCommand(commands.NewListCmd(globals, cli.reporter))
	cmd.AddCommand(commands.NewLoadersCmd(globals))

	return cmd
}
