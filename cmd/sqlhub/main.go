package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/jamesrr39/go-tracing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/httpextra"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/pkg/profile"
	"github.com/spf13/afero"
	"github.com/vegasq/sqlhub/config"
	"github.com/vegasq/sqlhub/output"
	"github.com/vegasq/sqlhub/webservices"
	"gopkg.in/alecthomas/kingpin.v2"
)

const version = "0.1.0"

const defaultConfigPath = "~/.config/sqlhub/config.yaml"

var (
	configPath    = kingpin.Flag("config", "YAML config file. Defaults to "+defaultConfigPath+" when it exists").String()
	verbose       = kingpin.Flag("v", "verbose logging").Bool()
	shouldProfile = kingpin.Flag("profile", "write a CPU profile of the run to the working directory").Bool()
)

func main() {
	kingpin.Version(version)

	setupQuery()
	setupShell()
	setupServe()

	kingpin.Parse()
}

func setupQuery() {
	cmd := kingpin.Command("query", "run one query and print the result")
	sql := cmd.Arg("sql", "the query, e.g. \"select name, stargazers_count from acme.repos order by stargazers_count desc limit 5\"").Required().String()
	format := cmd.Flag("format", "output format: "+strings.Join(output.Names(), ", ")+". Defaults to the configured output").Short('f').String()
	cmd.Action(runAction(func(ctx context.Context, env *environment) errorsx.Error {
		formatter, err := env.formatter(*format, os.Stdout)
		if err != nil {
			return err
		}

		return runQuery(ctx, env.parser, formatter, *sql)
	}))
}

func setupShell() {
	cmd := kingpin.Command("shell", "read queries line by line from stdin until exit or q")
	format := cmd.Flag("format", "output format. Defaults to the configured output").Short('f').String()
	cmd.Action(runAction(func(ctx context.Context, env *environment) errorsx.Error {
		formatter, err := env.formatter(*format, os.Stdout)
		if err != nil {
			return err
		}

		return runShell(ctx, os.Stdin, os.Stdout, env.parser, formatter)
	}))
}

func setupServe() {
	cmd := kingpin.Command("serve", "serve the query API over HTTP")
	addr := cmd.Flag("addr", "address to serve on. Defaults to the configured server address").String()
	traceFilePath := cmd.Flag("trace-file", "file to write request traces to").String()
	cmd.Action(runAction(func(ctx context.Context, env *environment) errorsx.Error {
		var traceWriter io.Writer = io.Discard
		if *traceFilePath != "" {
			traceFile, err := os.Create(*traceFilePath)
			if err != nil {
				return errorsx.Wrap(err, "traceFile", *traceFilePath)
			}
			defer traceFile.Close()
			traceWriter = traceFile
			env.logger.Info("tracing at %q", *traceFilePath)
		}

		info := webservices.NewInfoService(env.logger, version, env.sources, nil)

		server := httpextra.NewServerWithTimeouts()
		server.Addr = env.cfg.Server.Addr
		if *addr != "" {
			server.Addr = *addr
		}
		server.Handler = webservices.NewRouter(env.logger, tracing.NewTracer(traceWriter), env.parser, info)

		go func() {
			<-ctx.Done()
			server.Close()
		}()

		env.logger.Info("about to start serving on %q", server.Addr)

		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return errorsx.Wrap(err)
		}
		return nil
	}))
}

// runAction loads the environment shared by every command before running it.
func runAction(run func(ctx context.Context, env *environment) errorsx.Error) kingpin.Action {
	return func(*kingpin.ParseContext) error {
		if *shouldProfile {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		err := func() errorsx.Error {
			path, err := resolveConfigPath(afero.NewOsFs(), *configPath)
			if err != nil {
				return err
			}

			env, err := newEnvironment(ctx, afero.NewOsFs(), path, os.LookupEnv, *verbose)
			if err != nil {
				return err
			}
			defer env.Close()

			return run(ctx, env)
		}()
		if err != nil {
			return fmt.Errorf("error: %q\nStack trace:\n%s", err.Error(), err.Stack())
		}
		return nil
	}
}

func newLogger(cfg *config.Config, verbose bool) (*logpkg.Logger, errorsx.Error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = logpkg.LogLevelDebug
	}
	return logpkg.NewLogger(os.Stderr, level), nil
}
