package commands

import (
	"fmt"

	"github.com/de-tools/report-atlas/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type ListCmd struct {
	globals  *GlobalFlags
	reporter *export.Reporter
}

func NewListCmd(globals *GlobalFlags, reporter *export.Reporter) *cobra.Command {
	lc := &ListCmd{globals: globals, reporter: reporter}
	return &cobra.Command{
		Use:   "list",
		Short: "List the available report definitions",
		RunE:  lc.run,
	}
}

func (lc *ListCmd) run(cmd *cobra.Command, _ []string) error {
	catalog, err := lc.globals.loadCatalog()
	if err != nil {
		return err
	}

	defs := catalog.List()
	if len(defs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reports found")
		return nil
	}
	return lc.reporter.HandleReports(defs)
}
