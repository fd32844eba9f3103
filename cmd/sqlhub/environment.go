package main

import (
	"context"
	"io"
	"net/http"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/goutil/userextra"
	"github.com/spf13/afero"
	"github.com/vegasq/sqlhub/config"
	"github.com/vegasq/sqlhub/fetcher"
	"github.com/vegasq/sqlhub/output"
	"github.com/vegasq/sqlhub/query"
)

// environment holds what every command needs: configuration, a logger, and
// a parser whose sessions fetch through the configured sources.
type environment struct {
	cfg     *config.Config
	logger  *logpkg.Logger
	parser  *query.Parser
	sources []string
	closers []io.Closer
}

func newEnvironment(ctx context.Context, fs afero.Fs, path string, lookupEnv func(string) (string, bool), verbose bool) (*environment, errorsx.Error) {
	cfg, err := config.Load(fs, path, lookupEnv)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, verbose)
	if err != nil {
		return nil, err
	}

	f, closers, err := buildFetcher(ctx, fs, http.DefaultClient, cfg, logger)
	if err != nil {
		return nil, err
	}

	sources := make([]string, len(cfg.Sources))
	for i, source := range cfg.Sources {
		sources[i] = source.Pattern
	}

	return &environment{
		cfg:     cfg,
		logger:  logger,
		parser:  query.NewParser(f, query.WithLogger(logger)),
		sources: sources,
		closers: closers,
	}, nil
}

// formatter writes to w in the named format, or the configured one when name is empty.
func (env *environment) formatter(name string, w io.Writer) (output.Formatter, errorsx.Error) {
	if name == "" {
		name = env.cfg.Output
	}
	return output.New(name, w)
}

// Close releases the sources in reverse order of opening.
func (env *environment) Close() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		if err := env.closers[i].Close(); err != nil {
			env.logger.Warn("closing source: %s", err)
		}
	}
}

// resolveConfigPath falls back to the default config file when it exists.
func resolveConfigPath(fs afero.Fs, path string) (string, errorsx.Error) {
	if path != "" {
		return path, nil
	}

	expanded, err := userextra.ExpandUser(defaultConfigPath)
	if err != nil {
		return "", errorsx.Wrap(err)
	}
	exists, err := afero.Exists(fs, expanded)
	if err != nil {
		return "", errorsx.Wrap(err, "path", expanded)
	}
	if !exists {
		return "", nil
	}
	return expanded, nil
}

// buildFetcher routes labels to a backend per configured source, behind the
// fetch cache when one is configured. The returned closers must be closed by
// the caller.
func buildFetcher(ctx context.Context, fs afero.Fs, client *http.Client, cfg *config.Config, logger *logpkg.Logger) (query.Fetcher, []io.Closer, errorsx.Error) {
	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}

	router := fetcher.NewRouter()
	for _, source := range cfg.Sources {
		f, closer, err := buildSourceFetcher(ctx, fs, client, cfg, source, logger)
		if err != nil {
			closeAll()
			return nil, nil, errorsx.Wrap(err, "source", source.Pattern)
		}
		if closer != nil {
			closers = append(closers, closer)
		}

		if err := router.Handle(source.Pattern, f); err != nil {
			closeAll()
			return nil, nil, err
		}
		logger.Debug("routing %q to %s source", source.Pattern, source.Type)
	}

	if cfg.Cache.Path == "" {
		return router, closers, nil
	}

	cachePath, err := userextra.ExpandUser(cfg.Cache.Path)
	if err != nil {
		closeAll()
		return nil, nil, errorsx.Wrap(err, "cachePath", cfg.Cache.Path)
	}
	codec, cErr := fetcher.ParseCodec(cfg.Cache.Codec)
	if cErr != nil {
		closeAll()
		return nil, nil, cErr
	}
	db, cErr := fetcher.OpenCacheDB(cachePath)
	if cErr != nil {
		closeAll()
		return nil, nil, cErr
	}
	closers = append(closers, db)

	cache, cErr := fetcher.NewCachingFetcher(db, router, cfg.Cache.TTL, codec, fetcher.WithCacheLogger(logger))
	if cErr != nil {
		closeAll()
		return nil, nil, cErr
	}
	closers = append(closers, cache)

	if pruned, err := cache.Prune(); err != nil {
		logger.Warn("pruning fetch cache: %s", err)
	} else if pruned > 0 {
		logger.Debug("pruned %d expired cache entries", pruned)
	}

	return cache, closers, nil
}

func buildSourceFetcher(ctx context.Context, fs afero.Fs, client *http.Client, cfg *config.Config, source config.SourceConfig, logger *logpkg.Logger) (query.Fetcher, io.Closer, errorsx.Error) {
	switch source.Type {
	case config.SourceGitHub:
		return fetcher.NewGitHubFetcher(
			client,
			fetcher.WithBaseURL(cfg.GitHub.BaseURL),
			fetcher.WithToken(cfg.GitHub.Token),
			fetcher.WithConcurrency(cfg.GitHub.Concurrency),
			fetcher.WithGitHubLogger(logger),
		), nil, nil
	case config.SourceParquet:
		if source.URL != "" {
			f, err := fetcher.NewRemoteParquetFetcher(source.URL, fetcher.WithParquetLogger(logger))
			if err != nil {
				return nil, nil, err
			}
			return f, nil, nil
		}
		root, err := userextra.ExpandUser(source.Root)
		if err != nil {
			return nil, nil, errorsx.Wrap(err, "root", source.Root)
		}
		return fetcher.NewParquetFetcher(fs, root, fetcher.WithParquetLogger(logger)), nil, nil
	case config.SourcePostgres:
		db, err := fetcher.OpenPostgres(ctx, source.DSN)
		if err != nil {
			return nil, nil, err
		}
		return fetcher.NewSQLFetcher(db, source.OrgColumn), db, nil
	default:
		return nil, nil, errorsx.Errorf("unknown source type %q", source.Type)
	}
}
