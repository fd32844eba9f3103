package config

import (
	"testing"
	"time"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "", envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, uint(4), cfg.GitHub.Concurrency)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, []SourceConfig{{Pattern: "**", Type: SourceGitHub}}, cfg.Sources)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logpkg.LogLevelInfo, level)
}

func TestLoad_File(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/sqlhub.yaml", []byte(`
output: csv
log_level: debug
github:
  token: from-file
  concurrency: 8
cache:
  path: /tmp/sqlhub.db
  ttl: 90s
  codec: zstd
sources:
  - pattern: "archive.**"
    type: parquet
    root: /data
  - pattern: "warehouse.*"
    type: postgres
    dsn: postgres://localhost/sqlhub?sslmode=disable
    org_column: owner
  - pattern: "**"
    type: github
`), 0644))

	cfg, err := Load(fs, "/etc/sqlhub.yaml", envOf(map[string]string{EnvGitHubToken: "from-env"}))
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Output)
	assert.Equal(t, "from-env", cfg.GitHub.Token)
	assert.Equal(t, uint(8), cfg.GitHub.Concurrency)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, CacheConfig{Path: "/tmp/sqlhub.db", TTL: 90 * time.Second, Codec: "zstd"}, cfg.Cache)
	require.Len(t, cfg.Sources, 3)
	assert.Equal(t, SourceConfig{Pattern: "archive.**", Type: SourceParquet, Root: "/data"}, cfg.Sources[0])
	assert.Equal(t, "owner", cfg.Sources[1].OrgColumn)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logpkg.LogLevelDebug, level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "", envOf(map[string]string{
		EnvOutput:   "json",
		EnvLogLevel: "WARN",
	}))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logpkg.LogLevelWarn, level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "outptu: csv"},
		{"bad output", "output: xml"},
		{"bad level", "log_level: loud"},
		{"bad codec", "cache: {codec: lz4}"},
		{"bad ttl", "cache: {ttl: soon}"},
		{"negative ttl", "cache: {ttl: -1m}"},
		{"bad source type", "sources: [{pattern: '**', type: ftp}]"},
		{"parquet without location", "sources: [{pattern: '**', type: parquet}]"},
		{"postgres without dsn", "sources: [{pattern: '**', type: postgres}]"},
		{"source without pattern", "sources: [{type: github}]"},
		{"not yaml", "output: [csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/sqlhub.yaml", []byte(tt.yaml), 0644))
			_, err := Load(fs, "/sqlhub.yaml", envOf(nil))
			assert.Error(t, err)
		})
	}

	_, err := Load(afero.NewMemMapFs(), "/missing.yaml", envOf(nil))
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(afero.NewOsFs(), "../testdata/sqlhub.yaml", envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "table", cfg.Output)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, SourceParquet, cfg.Sources[0].Type)
	assert.Equal(t, "testdata", cfg.Sources[0].Root)
}
