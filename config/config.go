// Package config loads sqlhub's configuration from a YAML file and the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/goutil/userextra"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/vegasq/sqlhub/fetcher"
	"github.com/vegasq/sqlhub/output"
	"gopkg.in/yaml.v3"
)

// environment variables overriding the file
const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvOutput      = "SQLHUB_OUTPUT"
	EnvLogLevel    = "SQLHUB_LOG_LEVEL"
)

// source types
const (
	SourceGitHub   = "github"
	SourceParquet  = "parquet"
	SourcePostgres = "postgres"
)

type Config struct {
	Output   string         `mapstructure:"output"`
	LogLevel string         `mapstructure:"log_level"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Sources  []SourceConfig `mapstructure:"sources"`
}

type GitHubConfig struct {
	Token       string `mapstructure:"token"`
	BaseURL     string `mapstructure:"base_url"`
	Concurrency uint   `mapstructure:"concurrency"`
}

// CacheConfig configures the fetch cache. An empty path disables it.
type CacheConfig struct {
	Path  string        `mapstructure:"path"`
	TTL   time.Duration `mapstructure:"ttl"`
	Codec string        `mapstructure:"codec"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// SourceConfig routes labels matching Pattern to a backend. Root or URL
// locate parquet files; DSN and OrgColumn configure postgres.
type SourceConfig struct {
	Pattern   string `mapstructure:"pattern"`
	Type      string `mapstructure:"type"`
	Root      string `mapstructure:"root"`
	URL       string `mapstructure:"url"`
	DSN       string `mapstructure:"dsn"`
	OrgColumn string `mapstructure:"org_column"`
}

func Default() *Config {
	return &Config{
		Output:   "text",
		LogLevel: "info",
		GitHub: GitHubConfig{
			BaseURL:     fetcher.DefaultGitHubURL,
			Concurrency: fetcher.DefaultGitHubConcurrency,
		},
		Cache: CacheConfig{
			TTL:   10 * time.Minute,
			Codec: "snappy",
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. An empty path skips the file.
func Load(fs afero.Fs, path string, lookupEnv func(string) (string, bool)) (*Config, errorsx.Error) {
	cfg := Default()

	if path != "" {
		expanded, err := userextra.ExpandUser(path)
		if err != nil {
			return nil, errorsx.Wrap(err, "path", path)
		}
		data, err := afero.ReadFile(fs, expanded)
		if err != nil {
			return nil, errorsx.Wrap(err, "path", expanded)
		}
		if err := decode(data, cfg); err != nil {
			return nil, errorsx.Wrap(err, "path", expanded)
		}
	}

	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if token, ok := lookupEnv(EnvGitHubToken); ok && token != "" {
		cfg.GitHub.Token = token
	}
	if out, ok := lookupEnv(EnvOutput); ok && out != "" {
		cfg.Output = out
	}
	if level, ok := lookupEnv(EnvLogLevel); ok && level != "" {
		cfg.LogLevel = level
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = []SourceConfig{{Pattern: "**", Type: SourceGitHub}}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) errorsx.Error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errorsx.Wrap(err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      cfg,
	})
	if err != nil {
		return errorsx.Wrap(err)
	}
	if err := decoder.Decode(raw); err != nil {
		return errorsx.Wrap(err)
	}
	return nil
}

// Validate checks names that are otherwise only looked up at use.
func (c *Config) Validate() errorsx.Error {
	if _, err := output.New(c.Output, nil); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := fetcher.ParseCodec(c.Cache.Codec); err != nil {
		return err
	}
	if c.Cache.TTL <= 0 {
		return errorsx.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}
	for i, source := range c.Sources {
		if source.Pattern == "" {
			return errorsx.Errorf("source %d has no pattern", i)
		}
		switch source.Type {
		case SourceGitHub:
		case SourceParquet:
			if (source.Root == "") == (source.URL == "") {
				return errorsx.Errorf("parquet source %q needs exactly one of root and url", source.Pattern)
			}
		case SourcePostgres:
			if source.DSN == "" {
				return errorsx.Errorf("postgres source %q has no dsn", source.Pattern)
			}
		default:
			return errorsx.Errorf("source %q has unknown type %q", source.Pattern, source.Type)
		}
	}
	return nil
}

var logLevels = map[string]logpkg.LogLevel{
	"debug": logpkg.LogLevelDebug,
	"info":  logpkg.LogLevelInfo,
	"warn":  logpkg.LogLevelWarn,
	"error": logpkg.LogLevelError,
}

// Level is the configured log level.
func (c *Config) Level() (logpkg.LogLevel, errorsx.Error) {
	level, ok := logLevels[strings.ToLower(c.LogLevel)]
	if !ok {
		return 0, errorsx.Errorf("unknown log level %q", c.LogLevel)
	}
	return level, nil
}
