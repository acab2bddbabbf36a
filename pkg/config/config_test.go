package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{EnvConfig, EnvRankBy, EnvSortBy, EnvMergeDirs, EnvLogLevel, EnvLogFile} {
		if _, ok := os.LookupEnv(key); ok {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "duprank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "mf", cfg.RankBy)
	assert.Equal(t, int64(1), cfg.MinSize)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
rank_by: Sa
sort_by: S
merge_directories: true
min_size: 1024
workers: 3
skip_dirs: [node_modules]
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Sa", cfg.RankBy)
	assert.Equal(t, "S", cfg.SortBy)
	assert.True(t, cfg.MergeDirectories)
	assert.Equal(t, int64(1024), cfg.MinSize)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"node_modules"}, cfg.SkipDirs)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "text", cfg.Format, "unset keys keep their defaults")
}

func TestLoad_PreferredAndHardlinks(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
preferred: [/srv/originals, /srv/masters]
must_match_preferred: true
keep_all_preferred: true
hardlinked: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/originals", "/srv/masters"}, cfg.Preferred)
	assert.True(t, cfg.MustMatchPreferred)
	assert.True(t, cfg.KeepAllPreferred)
	assert.True(t, cfg.FindHardlinked)

	def := Default()
	assert.Empty(t, def.Preferred)
	assert.False(t, def.FindHardlinked, "hardlinks collapse unless asked for")
}

func TestLoad_FileFromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv(EnvConfig, writeConfig(t, "rank_by: d\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "d", cfg.RankBy)
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "rank_by: Sa\nmerge_directories: false\n")
	t.Setenv(EnvRankBy, "m")
	t.Setenv(EnvSortBy, "a")
	t.Setenv(EnvMergeDirs, "1")
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "m", cfg.RankBy)
	assert.Equal(t, "a", cfg.SortBy)
	assert.True(t, cfg.MergeDirectories)
	assert.Equal(t, slog.LevelError, cfg.Level())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			wantErr: "failed to read config",
		},
		{
			name:    "unknown key",
			path:    func(t *testing.T) string { return writeConfig(t, "rank_bye: a\n") },
			wantErr: "failed to parse config",
		},
		{
			name:    "bad merge env",
			path:    func(*testing.T) string { return "" },
			env:     map[string]string{EnvMergeDirs: "maybe"},
			wantErr: "invalid DUPRANK_MERGE_DIRS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(tt.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("ranked", "clusters", 3)

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "clusters=3")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(file.String())), &record))
	assert.Equal(t, "ranked", record["msg"])
	assert.InDelta(t, 3, record["clusters"], 0)
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duprank.log")

	logger, cleanup := SetupLogger(path, slog.LevelWarn)
	logger.Warn("attribute unavailable", "path", "/r/a")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"attribute unavailable"`)
}

func TestSetupLogger_NoFile(t *testing.T) {
	logger, cleanup := SetupLogger("", slog.LevelInfo)
	assert.NotNil(t, logger)
	assert.NoError(t, cleanup())
}

func TestSetupLogger_UnwritableFileFallsBack(t *testing.T) {
	logger, cleanup := SetupLogger(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), slog.LevelError)
	assert.NotNil(t, logger)
	assert.NoError(t, cleanup())
}
