package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete archlint configuration (v1 schema)
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Rules      RulesConfig      `json:"rules" mapstructure:"rules"`
	Evaluation EvaluationConfig `json:"evaluation" mapstructure:"evaluation"`
	Export     ExportConfig     `json:"export" mapstructure:"export"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// RulesConfig contains rule document configuration
type RulesConfig struct {
	// Path is the repo-relative path to the rule document (YAML or TOML)
	Path string `json:"path" mapstructure:"path"`
}

// EvaluationConfig contains rule evaluation limits
type EvaluationConfig struct {
	// DefaultMaxCycleDepth applies to forbid_cycles rules that omit max_depth
	DefaultMaxCycleDepth int `json:"defaultMaxCycleDepth" mapstructure:"defaultMaxCycleDepth"`
	// MaxCycleDepthCap is the hard ceiling on any rule's max_depth
	MaxCycleDepthCap int `json:"maxCycleDepthCap" mapstructure:"maxCycleDepthCap"`
}

// ExportConfig contains report export configuration
type ExportConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Rules: RulesConfig{
			Path: "architecture-rules.yaml",
		},
		Evaluation: EvaluationConfig{
			DefaultMaxCycleDepth: 10,
			MaxCycleDepthCap:     50,
		},
		Export: ExportConfig{
			Dir:      ".archlint/reports",
			Compress: false,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .archlint/config.json
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")
	v.SetDefault("rules.path", "architecture-rules.yaml")
	v.SetDefault("evaluation.defaultMaxCycleDepth", 10)
	v.SetDefault("evaluation.maxCycleDepthCap", 50)
	v.SetDefault("export.dir", ".archlint/reports")
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.level", "info")

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".archlint"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .archlint/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".archlint")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Rules.Path == "" {
		return &ConfigError{Field: "rules.path", Message: "rule document path must not be empty"}
	}
	if c.Evaluation.DefaultMaxCycleDepth <= 0 {
		return &ConfigError{Field: "evaluation.defaultMaxCycleDepth", Message: "must be positive"}
	}
	if c.Evaluation.MaxCycleDepthCap < c.Evaluation.DefaultMaxCycleDepth {
		return &ConfigError{Field: "evaluation.maxCycleDepthCap", Message: "cap below default depth"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
