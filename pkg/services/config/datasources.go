package config

import (
	"context"
	"fmt"
	"slices"

	"gopkg.in/ini.v1"
)

type DataSource struct {
	Name     string
	Driver   string
	DSN      string
	Database string
}

type DataSourceRegistry interface {
	GetDataSources(ctx context.Context) ([]string, error)
	GetDataSource(ctx context.Context, name string) (*DataSource, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewDataSourceRegistry(path string) (DataSourceRegistry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

// NewDataSourceRegistryFromBytes parses INI content held in memory.
func NewDataSourceRegistryFromBytes(data []byte) (DataSourceRegistry, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetDataSources(_ context.Context) ([]string, error) {
	var names []string
	for _, section := range cr.cfg.Sections() {
		if section.HasKey("driver") {
			names = append(names, section.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (cr *cfgRegistry) GetDataSource(_ context.Context, name string) (*DataSource, error) {
	section, err := cr.cfg.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("data source %s not found: %w", name, err)
	}

	driver := section.Key("driver").String()
	if driver == "" {
		return nil, fmt.Errorf("data source %s has no driver", name)
	}
	dsn := section.Key("dsn").String()
	if dsn == "" {
		return nil, fmt.Errorf("data source %s has no dsn", name)
	}

	return &DataSource{
		Name:     name,
		Driver:   driver,
		DSN:      dsn,
		Database: section.Key("database").String(),
	}, nil
}
