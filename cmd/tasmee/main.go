// Command tasmee is the recitation practice server: it matches live speech
// transcripts against a loaded passage over a WebSocket API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msaudi/tasmee/internal/app"
	"github.com/msaudi/tasmee/internal/config"
	"github.com/msaudi/tasmee/internal/health"
	"github.com/msaudi/tasmee/internal/observe"
	"github.com/msaudi/tasmee/internal/server"
	"github.com/msaudi/tasmee/internal/store"
	"github.com/msaudi/tasmee/internal/store/memstore"
	"github.com/msaudi/tasmee/internal/store/postgres"
	"github.com/msaudi/tasmee/internal/store/resilient"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// The log level is a handle the config watcher can adjust live.
	logLevel := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(d.NewLogLevel.Level())
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.PracticeChanged {
			slog.Info("practice defaults changed",
				"strictness", d.NewPractice.DefaultStrictness,
				"difficulty", d.NewPractice.DefaultDifficulty,
				"memory_mode", d.NewPractice.MemoryMode,
			)
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "tasmee: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "tasmee: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()

	cfg := watcher.Current()
	logLevel.Set(cfg.Server.LogLevel.Level())

	slog.Info("tasmee starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "tasmee",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		return 1
	}
	defer st.Close()

	manager := app.NewSessionManager(app.SessionManagerConfig{
		Defaults: func() config.PracticeConfig { return watcher.Current().Practice },
		Store:    st,
	})

	srv := server.New(server.Config{
		Addr:         cfg.Server.ListenAddr,
		TickInterval: cfg.Server.TickInterval,
		Sessions:     manager,
		ReadyChecks: []health.Checker{
			{
				Name: "store",
				Check: func(ctx context.Context) error {
					_, err := st.RecentSummaries(ctx, 1)
					return err
				},
			},
		},
	})

	slog.Info("server ready — press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// openStore picks the summary store backend: PostgreSQL when a DSN is
// configured, otherwise process-local memory.
func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	if cfg.PostgresDSN == "" {
		slog.Info("using in-memory summary store")
		return memstore.New(), nil
	}
	st, err := postgres.NewStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to postgres summary store")
	return resilient.Wrap(st, resilient.Config{}), nil
}
