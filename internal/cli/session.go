package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/halodb/internal/config"
	"github.com/roach88/halodb/internal/graph"
	"github.com/roach88/halodb/internal/live"
	"github.com/roach88/halodb/internal/logging"
	"github.com/roach88/halodb/internal/properties"
	"github.com/roach88/halodb/internal/relation"
	"github.com/roach88/halodb/internal/store"
	"github.com/roach88/halodb/internal/writelock"
)

// session is everything a command needs to talk to one catalog.
type session struct {
	cfg       *config.Config
	dbPath    string
	logger    *slog.Logger
	formatter *OutputFormatter
	backend   writelock.Backend
	props     *properties.Registry
	store     *store.Store

	closers []func() error
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads the configuration and builds the logger. Flags win
// over configured values.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	return cfg, logging.NewWriter(cmd.ErrOrStderr(), level), nil
}

// openSession loads configuration, connects the lock backend, opens the
// store and starts the metrics endpoint. Failures are reported through
// the formatter and returned as ExitErrors.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := newFormatter(opts, cmd)

	cfg, logger, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	s := &session{cfg: cfg, dbPath: cfg.Store.Path, logger: logger, formatter: formatter}

	backend, closeBackend, err := lockBackend(cfg.Lock, logger)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeLock, err)
	}
	s.backend = backend
	s.closers = append(s.closers, closeBackend)

	s.props, err = properties.Standard(cfg.HistogramParams(), properties.WithLogger(logger))
	if err != nil {
		s.Close()
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	s.store, err = s.openStore()
	if err != nil {
		s.Close()
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	s.closers = append(s.closers, s.store.Close)

	if cfg.Metrics.Addr != "" {
		_, stop, err := serveMetrics(cfg.Metrics.Addr, logger)
		if err != nil {
			s.Close()
			return nil, formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		s.closers = append(s.closers, stop)
	}
	return s, nil
}

// openStore opens another connection to the session's database with its
// own lock handle over the shared backend.
func (s *session) openStore() (*store.Store, error) {
	handle := writelock.NewHandle(s.backend, writelock.WithLogger(s.logger))
	return store.Open(s.dbPath, store.WithWriteLock(handle), store.WithLogger(s.logger))
}

// evaluator builds an Evaluator reading from reader.
func (s *session) evaluator(reader graph.Reader) *live.Evaluator {
	strategy := relation.New(reader,
		relation.WithMaxHops(s.cfg.Traversal.MaxHops),
		relation.WithLogger(s.logger),
	)
	return live.New(reader,
		live.WithStrategy(strategy),
		live.WithProperties(s.props),
		live.WithLogger(s.logger),
	)
}

// Close releases everything in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Error("error closing session", "error", err)
		}
	}
	s.closers = nil
}

// lockBackend builds the configured write lock backend and its closer.
func lockBackend(cfg config.Lock, logger *slog.Logger) (writelock.Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "", "local":
		return writelock.NewLocal(), noop, nil
	case "file":
		return writelock.NewFile(cfg.File), noop, nil
	case "redis":
		ttl, err := cfg.Duration()
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Debug("redis write lock ready", "addr", cfg.RedisAddr, "key", cfg.Key, "ttl", ttl)
		return writelock.NewRedis(client, cfg.Key, ttl), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

// serveMetrics exposes the default Prometheus registry on addr until the
// returned stop function is called. It returns the bound address.
func serveMetrics(addr string, logger *slog.Logger) (string, func() error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr().String(), srv.Close, nil
}
