package reports

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls which outputs the generator writes and over what window.
type Config struct {
	// OutputDir receives the rendered HTML, SVG, summary.js, and CSV files.
	OutputDir string `yaml:"output_dir"`

	// Weeks limits charts to the most recent N snapshot dates; 0 keeps all.
	Weeks int `yaml:"weeks"`

	// CSVExports toggles writing the aggregate CSV files next to the charts.
	CSVExports bool `yaml:"csv_exports"`
}

// DefaultConfig is used when no report file is provided.
func DefaultConfig() Config {
	return Config{OutputDir: "reports", Weeks: 52, CSVExports: true}
}

// LoadConfig reads a YAML report definition, applying defaults for omitted
// fields.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse report config %s: %w", path, err)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "reports"
	}
	if cfg.Weeks < 0 {
		return Config{}, fmt.Errorf("report config %s: weeks must not be negative", path)
	}
	return cfg, nil
}
