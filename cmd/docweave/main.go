// Package main is the docweave command: it loads record type declarations,
// compiles them into schemas, and reports what was built, connecting the
// declared databases so schema problems and connection problems surface
// before any application code runs.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/okenlabs/docweave/config"
	"github.com/okenlabs/docweave/core/schema"
	"github.com/okenlabs/docweave/core/storage"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "docweave.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	watch := flag.Bool("watch", false, "Stay running and recompile schemas when the configuration changes")
	flag.Parse()

	if *showVersion {
		fmt.Printf("docweave %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if *validateOnly {
		cfg, err := config.LoadWithFallback(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration valid\n")
		fmt.Printf("  Schema dir: %s\n", cfg.Schemas.Dir)
		fmt.Printf("  Databases: %d\n", len(cfg.Databases))
		os.Exit(0)
	}

	if err := run(*configPath, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, watch bool) error {
	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	logger.Info().Str("config", configPath).Msg("initializing docweave")

	n, pool, err := compile(cfg, logger)
	if err != nil {
		return err
	}
	fmt.Printf("%d record types declared\n", n)

	if !watch {
		return pool.Close()
	}
	return watchConfig(configPath, pool, logger)
}

// compile loads every declaration under the configured schema directory and
// connects each declared database, so schema problems and connection
// problems surface together. The caller owns the returned pool.
func compile(cfg *config.Config, logger zerolog.Logger) (int, *storage.Pool, error) {
	if cfg.Schemas.Dir == "" {
		return 0, nil, fmt.Errorf("no schema directory configured")
	}
	registry := schema.NewRegistry(schema.WithLogger(logger))
	schemas, err := schema.LoadDir(registry, cfg.Schemas.Dir)
	if err != nil {
		return 0, nil, err
	}

	pool := storage.NewPool(openStore(cfg, logger))
	for _, s := range schemas {
		db := s.Meta().Database
		if _, err := pool.Get(db); err != nil {
			pool.Close()
			return 0, nil, fmt.Errorf("schema %q: connect %s:%d: %w", s.Name(), db.Host, db.Port, err)
		}
		logger.Info().
			Str("type", s.Name()).
			Str("collection", s.Collection()).
			Int("fields", len(s.Fields())).
			Str("database", fmt.Sprintf("%s:%d", db.Host, db.Port)).
			Msg("schema ready")
	}
	return len(schemas), pool, nil
}

// watchConfig keeps the process running, recompiling the schema directory
// each time the configuration file changes or SIGHUP arrives. A reload that
// fails keeps the previous schemas and connections.
func watchConfig(configPath string, pool *storage.Pool, logger zerolog.Logger) error {
	holder, err := config.NewHolder(configPath, logger)
	if err != nil {
		pool.Close()
		return err
	}

	current := pool
	holder.OnChange(func(cfg *config.Config) {
		n, next, err := compile(cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("reload failed, keeping previous schemas")
			return
		}
		current.Close()
		current = next
		logger.Info().Int("types", n).Msg("schemas recompiled")
	})

	if err := holder.WatchFile(); err != nil {
		pool.Close()
		return err
	}
	holder.WatchSignals()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	holder.Stop()
	return current.Close()
}

// openStore maps a schema's connection descriptor onto a configured
// database. Descriptors without a configured database fall back to an
// in-memory store.
func openStore(cfg *config.Config, logger zerolog.Logger) storage.OpenFunc {
	byAddr := make(map[string]config.DatabaseConfig, len(cfg.Databases))
	for _, db := range cfg.Databases {
		byAddr[fmt.Sprintf("%s:%d", db.Host, db.Port)] = db
	}
	return func(db schema.DB) (storage.Store, error) {
		dc, ok := byAddr[fmt.Sprintf("%s:%d", db.Host, db.Port)]
		if !ok || dc.Driver == "memory" {
			return storage.NewMemoryStore(), nil
		}
		return storage.NewSQLiteStore(dc.Path, logger)
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
