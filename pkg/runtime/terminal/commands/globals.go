package commands

import (
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/registry"
	"github.com/de-tools/report-atlas/pkg/services/report"
	"github.com/de-tools/report-atlas/pkg/store/rest"
)

// GlobalFlags are the persistent flags shared by every subcommand. Set values
// take precedence over the config file.
type GlobalFlags struct {
	ConfigPath      string
	ReportsDir      string
	DataSourcesFile string
}

func (g *GlobalFlags) loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.ReportsDir != "" {
		cfg.ReportsDir = g.ReportsDir
	}
	if g.DataSourcesFile != "" {
		cfg.DataSourcesFile = g.DataSourcesFile
	}
	return cfg, nil
}

func (g *GlobalFlags) loadCatalog() (*report.Catalog, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return report.LoadCatalog(cfg.ReportsDir)
}

func newLoaders(cfg *config.AppConfig) (*registry.Loaders, error) {
	deps := registry.Dependencies{
		Rest: rest.Settings{
			RetryMax: cfg.Rest.RetryMax,
			Timeout:  cfg.Rest.Timeout,
		},
	}
	if cfg.DataSourcesFile != "" {
		sources, err := config.NewDataSourceRegistry(cfg.DataSourcesFile)
		if err != nil {
			return nil, err
		}
		deps.DataSources = sources
	}
	return registry.NewLoaders(deps)
}
