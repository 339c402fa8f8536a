package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rangescope/internal/parser"
)

// Environment variables that may override file paths
const (
	EnvGroundTruth = "RANGESCOPE_GROUND_TRUTH"
	EnvSourcesDir  = "RANGESCOPE_SOURCES_DIR"
	EnvOutputDir   = "RANGESCOPE_OUTPUT_DIR"
	EnvDatabase    = "RANGESCOPE_DATABASE"
)

// Config represents the application configuration
type Config struct {
	Input    InputConfig         `yaml:"input"`
	Columns  map[string][]string `yaml:"columns"` // default aliases per canonical field
	Sources  []SourceConfig      `yaml:"sources" validate:"required,min=1,dive"`
	Output   OutputConfig        `yaml:"output"`
	Calendar CalendarConfig      `yaml:"calendar"`
}

// InputConfig holds input file locations
type InputConfig struct {
	GroundTruth string `yaml:"ground_truth" validate:"required"`
	SourcesDir  string `yaml:"sources_dir"` // base for relative source files
}

// SourceConfig describes one news source file
type SourceConfig struct {
	ID      string              `yaml:"id" validate:"required"`
	File    string              `yaml:"file" validate:"required"`
	Columns map[string][]string `yaml:"columns"` // per-field overrides of the default aliases
}

// OutputConfig holds report settings
type OutputConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	Database string `yaml:"database"` // SQLite path, empty disables
	Chart    bool   `yaml:"chart"`
}

// CalendarConfig holds trading calendar additions
type CalendarConfig struct {
	ExtraHolidays []string `yaml:"extra_holidays"`
}

// DefaultSources are the ten news-source exports of the Nifty 50 dataset
var DefaultSources = []SourceConfig{
	{ID: "bloomberg", File: "bloomberg_nifty50.csv"},
	{ID: "cnbc", File: "cnbc_nifty50.csv"},
	{ID: "economictimeslive", File: "economictimeslive_nifty50.csv"},
	{ID: "etnow", File: "etnow_nifty50.csv"},
	{ID: "financialexpress", File: "financialexpress_nifty50.csv"},
	{ID: "indiatodaybusiness", File: "indiatodaybusiness_nifty50.csv"},
	{ID: "mint", File: "mint_nifty50.csv"},
	{ID: "moneycontrol", File: "moneycontrol_nifty50.csv"},
	{ID: "ndtvprofit", File: "ndtvprofit_nifty50.csv"},
	{ID: "timesnowbusiness", File: "timesnowbusiness_nifty50.csv"},
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	sources := make([]SourceConfig, len(DefaultSources))
	copy(sources, DefaultSources)

	columns := make(map[string][]string)
	for f, names := range parser.DefaultAliases() {
		columns[string(f)] = names
	}

	return &Config{
		Input: InputConfig{
			GroundTruth: "NIFTY_50.csv",
			SourcesDir:  ".",
		},
		Columns: columns,
		Sources: sources,
		Output: OutputConfig{
			Dir:   "reports",
			Chart: true,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. A .env file, when present, is loaded before the overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	_ = godotenv.Load() // .env is optional

	// Override with environment variables if set
	if v := os.Getenv(EnvGroundTruth); v != "" {
		cfg.Input.GroundTruth = v
	}
	if v := os.Getenv(EnvSourcesDir); v != "" {
		cfg.Input.SourcesDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Output.Database = v
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		for field := range s.Columns {
			if !parser.IsField(field) {
				return fmt.Errorf("source %s: unknown column field %q", s.ID, field)
			}
		}
	}
	for field := range c.Columns {
		if !parser.IsField(field) {
			return fmt.Errorf("unknown column field %q", field)
		}
	}
	return nil
}

// SourceIDs returns the configured source ids in config order
func (c *Config) SourceIDs() []string {
	ids := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		ids[i] = s.ID
	}
	return ids
}

// SourcePath resolves a source file against the sources directory
func (c *Config) SourcePath(s SourceConfig) string {
	if filepath.IsAbs(s.File) || c.Input.SourcesDir == "" {
		return s.File
	}
	return filepath.Join(c.Input.SourcesDir, s.File)
}

// AliasesFor returns the resolved column aliases for one source
func (c *Config) AliasesFor(s SourceConfig) parser.Aliases {
	base := make(parser.Aliases, len(c.Columns))
	for f, names := range c.Columns {
		base[parser.Field(f)] = names
	}
	override := make(parser.Aliases, len(s.Columns))
	for f, names := range s.Columns {
		override[parser.Field(f)] = names
	}
	return base.Merge(override)
}
