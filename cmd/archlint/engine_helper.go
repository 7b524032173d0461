package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"archlint/internal/config"
	"archlint/internal/fitness"
	"archlint/internal/logging"
	"archlint/internal/rules"
	"archlint/internal/storage"
)

var (
	engineOnce     sync.Once
	sharedEngine   *fitness.Engine
	sharedSnapshot *storage.Snapshot
	sharedConfig   *config.Config
	engineErr      error
)

// getEngine returns a shared evaluation engine over the repository
// index. Lazily initialized on first use.
func getEngine(repoRoot string, logger *logging.Logger) (*fitness.Engine, *config.Config, error) {
	engineOnce.Do(func() {
		cfg, err := config.LoadConfig(repoRoot)
		if err != nil {
			logger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = config.DefaultConfig()
		}
		sharedConfig = cfg

		db, err := storage.Open(repoRoot, logger)
		if err != nil {
			engineErr = fmt.Errorf("failed to open index database: %w", err)
			return
		}

		sharedSnapshot = storage.NewSnapshot(db)
		sharedEngine = fitness.NewEngine(sharedSnapshot, logger)
	})

	return sharedEngine, sharedConfig, engineErr
}

// mustGetEngine returns the shared engine or exits on error
func mustGetEngine(repoRoot string, logger *logging.Logger) (*fitness.Engine, *config.Config) {
	engine, cfg, err := getEngine(repoRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(ExitOperationalError)
	}
	return engine, cfg
}

// indexStateID returns the indexer's state id from index_meta, empty
// when the indexer never wrote one.
func indexStateID() string {
	if sharedSnapshot == nil {
		return ""
	}
	state, err := sharedSnapshot.Meta("state_id")
	if err != nil {
		return ""
	}
	return state
}

// getRepoRoot returns the repository root directory
func getRepoRoot() (string, error) {
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitOperationalError)
	}
	return repoRoot
}

// resolveRulesPath resolves the rule document path, preferring an
// explicit flag over the configured default. Relative paths are
// anchored at the repository root.
func resolveRulesPath(repoRoot, flagValue string, cfg *config.Config) string {
	path := flagValue
	if path == "" {
		path = cfg.Rules.Path
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	return path
}

// mustLoadRules loads and validates the rule document with the
// configured evaluation limits, or exits.
func mustLoadRules(path string, cfg *config.Config) *rules.RuleSet {
	rs, err := rules.LoadFileWith(path, rules.LoadOptions{
		DefaultMaxDepth: cfg.Evaluation.DefaultMaxCycleDepth,
		MaxDepthCap:     cfg.Evaluation.MaxCycleDepthCap,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitOperationalError)
	}
	return rs
}

// newLogger creates a logger with the specified format, keeping stdout
// clean for command output. The level comes from the
// ARCHLINT_LOG_LEVEL env var, then the config file, then info.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}

	level := os.Getenv("ARCHLINT_LOG_LEVEL")
	if level == "" {
		if cfg, err := config.LoadConfig("."); err == nil {
			level = cfg.Logging.Level
		}
	}

	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.ParseLevel(level),
	})
}
