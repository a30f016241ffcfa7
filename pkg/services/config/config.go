package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "REPORTS"

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type ExtractionConfig struct {
	PutEmptyRowIfNoData bool `mapstructure:"put_empty_row_if_no_data"`
}

type RestConfig struct {
	RetryMax int           `mapstructure:"retry_max"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ScheduleConfig struct {
	Report  string         `mapstructure:"report"`
	Cron    string         `mapstructure:"cron"`
	Timeout time.Duration  `mapstructure:"timeout"`
	Params  map[string]any `mapstructure:"params"`
}

type AppConfig struct {
	Server          ServerConfig     `mapstructure:"server"`
	ReportsDir      string           `mapstructure:"reports_dir" validate:"required"`
	DataSourcesFile string           `mapstructure:"datasources_file"`
	RunDBPath       string           `mapstructure:"run_db_path"`
	Extraction      ExtractionConfig `mapstructure:"extraction"`
	Rest            RestConfig       `mapstructure:"rest"`
	Schedules       []ScheduleConfig `mapstructure:"schedules"`
}

func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("reports_dir", "reports")
	v.SetDefault("datasources_file", "")
	v.SetDefault("run_db_path", "runs.duckdb")
	v.SetDefault("extraction.put_empty_row_if_no_data", true)
	v.SetDefault("rest.retry_max", 3)
	v.SetDefault("rest.timeout", 30*time.Second)
}

// LoadConfig reads the YAML config at path. An empty path yields defaults
// plus REPORTS_* environment overrides.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.ReportsDir == "" {
		return nil, fmt.Errorf("reports_dir is required")
	}
	return &cfg, nil
}
