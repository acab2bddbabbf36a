// Package config loads duprank settings from defaults, an optional YAML file and
// the environment. Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig    = "DUPRANK_CONFIG"
	EnvRankBy    = "DUPRANK_RANK_BY"
	EnvSortBy    = "DUPRANK_SORT_BY"
	EnvMergeDirs = "DUPRANK_MERGE_DIRS"
	EnvLogLevel  = "DUPRANK_LOG_LEVEL"
	EnvLogFile   = "DUPRANK_LOG_FILE"
)

// Config holds all configuration values.
type Config struct {
	// Ranking
	RankBy           string `yaml:"rank_by"`
	SortBy           string `yaml:"sort_by"`
	MergeDirectories bool   `yaml:"merge_directories"`

	// Preferred paths and hardlinks
	Preferred          []string `yaml:"preferred"`
	MustMatchPreferred bool     `yaml:"must_match_preferred"`
	KeepAllPreferred   bool     `yaml:"keep_all_preferred"`
	FindHardlinked     bool     `yaml:"hardlinked"`

	// Traversal and hashing
	MinSize   int64    `yaml:"min_size"`
	MaxDepth  int      `yaml:"max_depth"`
	Workers   int      `yaml:"workers"`
	SkipFiles []string `yaml:"skip_files"`
	SkipDirs  []string `yaml:"skip_dirs"`

	// Output
	Format string `yaml:"format"`

	// Logging
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RankBy:   "mf",
		SortBy:   "f",
		MinSize:  1,
		SkipDirs: []string{".git"},
		Format:   "text",
		LogLevel: "WARN",
	}
}

// Load returns the defaults overlaid with the YAML file at path (if any) and the
// environment. An empty path falls back to DUPRANK_CONFIG; when neither is set no
// file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty file decodes to io.EOF and leaves the defaults in place.
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return nil
}

// ApplyEnv overrides fields from DUPRANK_* environment variables.
func (c *Config) ApplyEnv() error {
	c.RankBy = getEnv(EnvRankBy, c.RankBy)
	c.SortBy = getEnv(EnvSortBy, c.SortBy)
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)
	c.LogFile = getEnv(EnvLogFile, c.LogFile)

	if v := os.Getenv(EnvMergeDirs); v != "" {
		merge, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", EnvMergeDirs, v, err)
		}
		c.MergeDirectories = merge
	}

	return nil
}

// Level returns the parsed log level.
func (c Config) Level() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to INFO.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
