// Command revisor is the review service for generated hypnosis audio.
// It serves the operator-facing HTTP API for inspecting transcription
// divergences, recording corrections, and submitting reprocess batches to the
// generation backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hipnotiq/revisor/internal/api"
	"github.com/hipnotiq/revisor/internal/backend"
	"github.com/hipnotiq/revisor/internal/config"
	"github.com/hipnotiq/revisor/internal/health"
	"github.com/hipnotiq/revisor/internal/observe"
	"github.com/hipnotiq/revisor/internal/review"
	"github.com/hipnotiq/revisor/internal/store"
	"github.com/hipnotiq/revisor/internal/store/postgres"
	"github.com/hipnotiq/revisor/internal/suggest"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "revisor: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "revisor: %v\n", err)
		}
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("revisor starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers. The Prometheus exporter backs the /metrics route.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "revisor",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// Store: postgres when a DSN is configured, in-memory otherwise.
	var st store.Store
	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		pg, err := postgres.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		st = pg
		slog.Info("using postgres store")
	} else {
		st = store.NewMemory()
		slog.Info("using in-memory store; submissions will not survive a restart")
	}
	defer st.Close()

	breaker := backend.NewCircuitBreaker(backend.CircuitBreakerConfig{
		Name:         "backend",
		MaxFailures:  cfg.Backend.Breaker.MaxFailures,
		ResetTimeout: cfg.Backend.Breaker.ResetTimeout,
	})
	client, err := backend.New(cfg.Backend.BaseURL,
		backend.WithAPIKey(cfg.Backend.APIKey),
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithBreaker(breaker),
	)
	if err != nil {
		slog.Error("failed to create backend client", "err", err)
		return 1
	}

	manager := review.NewManager(review.ManagerConfig{
		Backend:       client,
		Store:         st,
		IdleTTL:       cfg.Sessions.IdleTTL,
		SweepInterval: cfg.Sessions.SweepInterval,
	})

	phonetic := suggest.NewPhonetic(
		suggest.WithPhoneticThreshold(cfg.Suggest.PhoneticThreshold),
		suggest.WithFuzzyThreshold(cfg.Suggest.FuzzyThreshold),
	)
	stages := []suggest.Stage{phonetic}
	if oai := cfg.Suggest.OpenAI; oai != nil {
		var opts []suggest.OpenAIOption
		if oai.BaseURL != "" {
			opts = append(opts, suggest.WithBaseURL(oai.BaseURL))
		}
		completer, err := suggest.NewOpenAICompleter(oai.APIKey, oai.Model, opts...)
		if err != nil {
			slog.Error("failed to create LLM suggestion stage", "err", err)
			return 1
		}
		stages = append(stages, suggest.NewLLM(completer))
		slog.Info("LLM suggestion stage enabled", "model", oai.Model)
	}

	checks := health.New(
		health.Checker{Name: "database", Check: st.Ping},
		health.Checker{Name: "backend", Check: client.Ping},
	)

	server := api.NewServer(api.ServerConfig{
		Manager:     manager,
		Suggester:   suggest.NewPipeline(stages...),
		Store:       st,
		Health:      checks,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Config watcher: log level, suggestion thresholds, and session TTL apply
	// without a restart.
	watcher, err := config.NewWatcher(*configPath, func(prev, next *config.Config) {
		d := config.Diff(prev, next)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.ThresholdsChanged {
			phonetic.SetThresholds(d.NewPhoneticThreshold, d.NewFuzzyThreshold)
			slog.Info("suggestion thresholds updated",
				"phonetic", d.NewPhoneticThreshold,
				"fuzzy", d.NewFuzzyThreshold,
			)
		}
		if d.SessionTTLChanged {
			manager.SetIdleTTL(d.NewIdleTTL)
			slog.Info("session idle TTL updated", "idle_ttl", d.NewIdleTTL)
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server ready", "addr", cfg.Server.ListenAddr)
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := manager.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// slogLevel maps a config log level to its slog equivalent.
func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
