package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/mongoship/internal/adapters/log"
	"github.com/bft-labs/mongoship/internal/adapters/input"
	"github.com/bft-labs/mongoship/internal/adapters/metrics"
	mongoAdapter "github.com/bft-labs/mongoship/internal/adapters/mongo"
	"github.com/bft-labs/mongoship/internal/adapters/stdout"
	"github.com/bft-labs/mongoship/internal/app"
	"github.com/bft-labs/mongoship/internal/cliconfig"
	"github.com/bft-labs/mongoship/internal/event"
	"github.com/bft-labs/mongoship/internal/ports"
)

const longHelp = `Ship JSON events into MongoDB collections.

Events are read one JSON object per line from stdin or a file and written as
insert, update or replace operations, optionally batched per collection.
Collection names, actions, filters and update expressions may reference
event fields with %{field} and [field][nested] placeholders.`

var exampleUsage = strings.TrimSpace(`
  mongoship --uri mongodb://localhost:27017 --database logstash --collection 'logs-%{service}'
  mongoship --config $HOME/.mongoship/config.toml --input /var/log/app.json --follow
  mongoship --action update --filter '{"_id":"[id]"}' --upsert --dry-run --collection users
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:          "mongoship",
		Short:        "Ship JSON events into MongoDB collections",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides the file, flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log = log.Level(logAdapter.ParseLevel(cfg.LogLevel))

			logCfg := cfg
			logCfg.URI = redactURI(cfg.URI)
			log.Info().Interface("config", logCfg).Msg("configuration")

			return run(cfg, logAdapter.NewZerolog(log))
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.mongoship/config.toml)")
	root.Flags().StringVar(&cfg.URI, "uri", cfg.URI, "MongoDB connection string")
	root.Flags().StringVar(&cfg.Database, "database", cfg.Database, "database to write to")
	root.Flags().StringVar(&cfg.Collection, "collection", cfg.Collection, "collection name, may reference event fields with %{field}")

	root.Flags().BoolVar(&cfg.ISODate, "isodate", cfg.ISODate, "store @timestamp as a BSON date instead of a string")
	root.Flags().BoolVar(&cfg.GenerateID, "generate-id", cfg.GenerateID, "set _id to an ObjectID derived from the event time")

	root.Flags().DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "initial delay between write retries")
	root.Flags().DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "upper bound of the retry delay")
	root.Flags().IntVar(&cfg.RetryMaxAttempts, "retry-max-attempts", cfg.RetryMaxAttempts, "attempts before a write is dropped (0 retries forever)")
	root.Flags().Float64Var(&cfg.RetryMultiplier, "retry-multiplier", cfg.RetryMultiplier, "growth factor of the retry delay (1 keeps it fixed)")
	root.Flags().Float64Var(&cfg.RetryJitter, "retry-jitter", cfg.RetryJitter, "fraction of the delay added at random (0 disables jitter)")
	root.Flags().IntVar(&cfg.BreakerFailures, "breaker-failures", cfg.BreakerFailures, "consecutive failures that open the circuit breaker (0 disables it)")
	root.Flags().DurationVar(&cfg.BreakerTimeout, "breaker-timeout", cfg.BreakerTimeout, "how long the breaker stays open before probing")

	root.Flags().BoolVar(&cfg.Bulk, "bulk", cfg.Bulk, "batch writes per collection")
	root.Flags().DurationVar(&cfg.BulkInterval, "bulk-interval", cfg.BulkInterval, "flush pending batches at this interval")
	root.Flags().IntVar(&cfg.BulkSize, "bulk-size", cfg.BulkSize, "flush a collection once it holds this many ops (max 1000)")

	root.Flags().StringVar(&cfg.Action, "action", cfg.Action, "insert, update, replace, or a %{field} template resolving to one")
	root.Flags().Var(cliconfig.NewDocFlag(&cfg.Filter), "filter", "JSON filter for update and replace, values may be [field] references")
	root.Flags().Var(cliconfig.NewDocFlag(&cfg.UpdateExpressions), "update-expressions", "JSON update document used instead of $set of the event")
	root.Flags().BoolVar(&cfg.Upsert, "upsert", cfg.Upsert, "insert when update or replace matches nothing")
	root.Flags().StringVar(&cfg.QueryKey, "query-key", cfg.QueryKey, "filter key used with --query-value")
	root.Flags().StringVar(&cfg.QueryValue, "query-value", cfg.QueryValue, "single-key filter value when --filter is not set")

	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "timeout of a single store call")
	root.Flags().StringVar(&cfg.Input, "input", cfg.Input, "input file, - for stdin")
	root.Flags().BoolVar(&cfg.Follow, "follow", cfg.Follow, "keep reading the input file as it grows")
	root.Flags().BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "print operations to stdout instead of writing them")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("mongoship")
		os.Exit(1)
	}
}

func run(cfg cliconfig.Config, logger ports.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("failed to close store", ports.Err(err))
		}
	}()

	var emitter app.Emitter = app.NopEmitter{}
	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector()
		emitter = collector
		srv := serveMetrics(cfg.MetricsAddr, collector.Handler(), logger)
		defer srv.Shutdown(context.Background())
	}

	sink, err := app.NewSink(cfg.Settings(), store, logger, emitter)
	if err != nil {
		return err
	}
	if err := sink.Start(ctx); err != nil {
		return fmt.Errorf("start sink: %w", err)
	}

	handler := func(ctx context.Context, ev *event.Event) error {
		return sink.Receive(ctx, ev)
	}

	done := make(chan error, 1)
	go func() { done <- consume(ctx, cfg, logger, handler) }()

	var readErr error
	select {
	case readErr = <-done:
		logger.Info("input finished")
	case <-ctx.Done():
		logger.Info("received signal, stopping")
		// A read blocked on stdin ignores ctx; Stop still drains what was accepted.
		select {
		case readErr = <-done:
		case <-time.After(app.ShutdownTimeout):
			logger.Warn("input did not stop, stopping sink",
				ports.Duration("timeout", app.ShutdownTimeout))
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	if err := sink.Stop(stopCtx); err != nil {
		return errors.Join(readErr, fmt.Errorf("stop sink: %w", err))
	}
	if errors.Is(readErr, context.Canceled) {
		return nil
	}
	return readErr
}

func openStore(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (ports.Store, error) {
	if cfg.DryRun {
		return stdout.New(os.Stdout), nil
	}
	store, err := mongoAdapter.Connect(ctx, mongoAdapter.Config{
		URI:          cfg.URI,
		Database:     cfg.Database,
		WriteTimeout: cfg.WriteTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func consume(ctx context.Context, cfg cliconfig.Config, logger ports.Logger, h input.Handler) error {
	if cfg.Follow {
		return input.NewFollower(cfg.Input, logger).Run(ctx, h)
	}

	src := os.Stdin
	if cfg.Input != cliconfig.StdinInput {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		src = f
	}

	r := input.NewReader(logger)
	err := r.Run(ctx, src, h)
	s := r.Stats()
	logger.Info("input stats",
		ports.Int("lines", s.Lines),
		ports.Int("events", s.Events),
		ports.Int("malformed", s.Malformed),
		ports.Int("dropped", s.Dropped),
	)
	return err
}

func serveMetrics(addr string, h http.Handler, logger ports.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", ports.Err(err))
		}
	}()
	logger.Info("serving metrics", ports.String("addr", addr))
	return srv
}

// redactURI masks the password of a connection string.
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "*****"
	}
	return u.Redacted()
}
