package tool

import (
	"errors"
	"fmt"
	"slices"
)

// Summary table formats.
var summaryFormats = []string{"table", "csv", "markdown", "html"}

// LogConfig configures log decoding.
type LogConfig struct {
	SettingsLine bool `yaml:"settings_line"`
}

// StorageConfig configures the run database.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// SummaryConfig configures `log summary` output.
type SummaryConfig struct {
	Format string `yaml:"format"`
}

// Config is the `cws_tool` config file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Summary SummaryConfig `yaml:"summary"`
}

func defaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			DBPath: "data/cws.db",
		},
		Summary: SummaryConfig{
			Format: "table",
		},
	}
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	*c = defaultConfig()

	type plain Config

	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	return c.validate()
}

func (c *Config) validate() error {
	if !slices.Contains(summaryFormats, c.Summary.Format) {
		return fmt.Errorf("invalid summary format %q, must be one of %v", c.Summary.Format, summaryFormats)
	}

	if c.Storage.DBPath == "" {
		return errors.New("storage db_path must not be empty")
	}

	return nil
}
