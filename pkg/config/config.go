package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds run configuration. Values come from the environment,
// optionally overlaid by a YAML file, then by CLI flags in main.
type Config struct {
	DSN         string `yaml:"dsn"`
	Query       string `yaml:"query"`
	InputTable  string `yaml:"input_table"`
	OutputTable string `yaml:"output_table"`
	ModelPath   string `yaml:"model_path"`
	OutputCSV   string `yaml:"output_csv"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// FromEnv builds a Config from TTS_* environment variables with the
// production defaults.
func FromEnv() Config {
	return Config{
		DSN:         os.Getenv("TTS_DSN"),
		Query:       os.Getenv("TTS_QUERY"),
		InputTable:  envOr("TTS_INPUT_TABLE", "TTS_PRODUCTION"),
		OutputTable: envOr("TTS_OUTPUT_TABLE", "TIME_TO_SHOP"),
		ModelPath:   envOr("TTS_MODEL_PATH", "finalized_model.json"),
		OutputCSV:   os.Getenv("TTS_OUTPUT_CSV"),
		LogLevel:    envOr("TTS_LOG_LEVEL", "info"),
		LogFormat:   envOr("TTS_LOG_FORMAT", "text"),
	}
}

// ApplyFile overlays values from a YAML config file. Empty fields in
// the file leave the current values untouched.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var overlay Config
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	merge(&c.DSN, overlay.DSN)
	merge(&c.Query, overlay.Query)
	merge(&c.InputTable, overlay.InputTable)
	merge(&c.OutputTable, overlay.OutputTable)
	merge(&c.ModelPath, overlay.ModelPath)
	merge(&c.OutputCSV, overlay.OutputCSV)
	merge(&c.LogLevel, overlay.LogLevel)
	merge(&c.LogFormat, overlay.LogFormat)
	return nil
}

// Validate checks the preconditions that must fail before any data is
// touched: a reachable DSN string and an existing model artifact.
func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("dsn not set (flag -dsn or TTS_DSN)")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model path not set")
	}
	if _, err := os.Stat(c.ModelPath); err != nil {
		return fmt.Errorf("model artifact not found: %s", c.ModelPath)
	}
	return nil
}

// QueryOrDefault returns the pass-through query, defaulting to a full
// scan of the configured input table.
func (c Config) QueryOrDefault() string {
	if c.Query != "" {
		return c.Query
	}
	return fmt.Sprintf("SELECT * FROM %s", c.InputTable)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func merge(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
