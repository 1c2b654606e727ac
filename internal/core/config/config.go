package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pathways-lab/scenario-explorer/internal/arrange"
	"github.com/pathways-lab/scenario-explorer/internal/charts"
	coreagg "github.com/pathways-lab/scenario-explorer/internal/core/aggregation"
)

// EnvPrefix prefixes every environment override, e.g. EXPLORER_SERVER__PORT.
const EnvPrefix = "EXPLORER_"

// Config represents the top-level application config plus the loaded charts.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Results  ResultsConfig  `koanf:"results"`
	Charts   ChartsConfig   `koanf:"charts"`
	Style    StyleConfig    `koanf:"style"`
	Scale    ScaleConfig    `koanf:"scale"`
	Cache    CacheConfig    `koanf:"cache"`
	Database DatabaseConfig `koanf:"database"`
	Export   ExportConfig   `koanf:"export"`
	NetZero  NetZeroConfig  `koanf:"netzero"`

	// ChartLoading is populated by Load after parsing chart files.
	ChartLoading ChartLoadingConfig `koanf:"-"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ResultsConfig struct {
	// Path is one .zip result archive or a directory of them.
	Path           string            `koanf:"path"`
	Include        []string          `koanf:"include"`
	Exclude        []string          `koanf:"exclude"`
	Workers        int               `koanf:"workers"`
	ReloadInterval time.Duration     `koanf:"reload_interval"` // 0 disables reloading
	RunAliases     map[string]string `koanf:"run_aliases"`
	MergeOperator  string            `koanf:"merge_operator"`
}

type ChartsConfig struct {
	ConfigDir     string `koanf:"config_dir"`
	RequireCharts bool   `koanf:"require_charts"`
}

type StyleConfig struct {
	NamingFile     string `koanf:"naming_file"`
	PaletteFile    string `koanf:"palette_file"`
	AllocationFile string `koanf:"allocation_file"`
	Palette        string `koanf:"palette"`
	Theme          string `koanf:"theme"`
	Continuous     bool   `koanf:"continuous"`
}

type ScaleConfig struct {
	Dimension string `koanf:"dimension"`
	// Periods maps a period's first year to its length in years. Empty
	// means the model's default periods.
	Periods map[string]float64 `koanf:"periods"`
}

type CacheConfig struct {
	Capacity int `koanf:"capacity"` // 0 disables the render cache
}

type DatabaseConfig struct {
	// DSN is optional; without it nothing is persisted and /health skips the
	// database check.
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type ExportConfig struct {
	Dir      string `koanf:"dir"`
	Postgres bool   `koanf:"postgres"`
}

type NetZeroConfig struct {
	Variable  string  `koanf:"variable"`
	BaseYear  string  `koanf:"base_year"`
	Threshold float64 `koanf:"threshold"`
}

type ChartLoadingConfig struct {
	ConfigDir  string
	Repository *charts.FileSystemRepository
}

// EffectivePeriods returns the configured periods, or the defaults.
func (c ScaleConfig) EffectivePeriods() map[string]float64 {
	if len(c.Periods) > 0 {
		return c.Periods
	}
	return arrange.DefaultPeriods()
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Results.Path) == "" {
		return fmt.Errorf("results.path is required")
	}
	if c.Results.Workers <= 0 {
		return fmt.Errorf("results.workers must be > 0")
	}
	if c.Results.ReloadInterval < 0 {
		return fmt.Errorf("results.reload_interval must be >= 0")
	}
	if !coreagg.ValidOperator(c.Results.MergeOperator) {
		return fmt.Errorf("unsupported results.merge_operator %q", c.Results.MergeOperator)
	}

	if strings.TrimSpace(c.Charts.ConfigDir) == "" {
		return fmt.Errorf("charts.config_dir is required")
	}

	if c.Style.PaletteFile != "" && c.Style.Palette == "" {
		return fmt.Errorf("style.palette is required with style.palette_file")
	}
	if c.Style.AllocationFile != "" && c.Style.PaletteFile == "" {
		return fmt.Errorf("style.allocation_file requires style.palette_file")
	}

	if strings.TrimSpace(c.Scale.Dimension) == "" {
		return fmt.Errorf("scale.dimension is required")
	}
	for year, length := range c.Scale.Periods {
		if length <= 0 {
			return fmt.Errorf("scale.periods.%s must be > 0", year)
		}
	}

	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must be >= 0")
	}

	if c.Database.DSN != "" {
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}
	if c.Export.Postgres && strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("export.postgres requires database.dsn")
	}

	if c.NetZero.Threshold < 0 || c.NetZero.Threshold > 1 {
		return fmt.Errorf("netzero.threshold must be within [0, 1]")
	}

	return nil
}

// Load parses config from file + env, validates it, then loads and validates
// chart definitions.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.mode":             "release",
		"results.path":            "./results",
		"results.workers":         4,
		"results.reload_interval": "1m",
		"results.merge_operator":  coreagg.OpSum,
		"charts.config_dir":       "./config/charts",
		"charts.require_charts":   true,
		"scale.dimension":         arrange.YearDimension,
		"cache.capacity":          256,
		"database.dsn":            "",
		"database.max_open_conns": 10,
		"database.max_idle_conns": 5,
		"database.auto_migrate":   true,
		"export.dir":              "./export",
		"export.postgres":         false,
		"netzero.variable":        "AnnualEmissions",
		"netzero.base_year":       "2015",
		"netzero.threshold":       0.05,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := charts.NewFileSystemRepository(cfg.Charts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart definitions: %w", err)
	}
	if cfg.Charts.RequireCharts && repo.Len() == 0 {
		return nil, fmt.Errorf("no chart definitions found in %q", cfg.Charts.ConfigDir)
	}

	cfg.ChartLoading = ChartLoadingConfig{
		ConfigDir:  cfg.Charts.ConfigDir,
		Repository: repo,
	}

	return &cfg, nil
}
