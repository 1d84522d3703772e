// Command oratio runs the oral reading assessment server.
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

	"github.com/oratio-labs/oratio/internal/assess"
	"github.com/oratio-labs/oratio/internal/config"
	"github.com/oratio-labs/oratio/internal/health"
	"github.com/oratio-labs/oratio/internal/observe"
	"github.com/oratio-labs/oratio/internal/resilience"
	"github.com/oratio-labs/oratio/internal/sessionstore"
	"github.com/oratio-labs/oratio/internal/sessionstore/postgres"
	"github.com/oratio-labs/oratio/internal/web"
	"github.com/oratio-labs/oratio/pkg/provider/stt"
	"github.com/oratio-labs/oratio/pkg/provider/stt/deepgram"
	"github.com/oratio-labs/oratio/pkg/provider/stt/google"
	oaistt "github.com/oratio-labs/oratio/pkg/provider/stt/openai"
	"github.com/oratio-labs/oratio/pkg/provider/stt/whisper"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "oratio: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "oratio: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	slog.Info("oratio starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "oratio",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	reg := config.NewRegistry()
	registerBuiltinProviders(ctx, reg)

	provider, providerName, err := buildTranscriber(cfg, reg)
	if err != nil {
		slog.Error("failed to build transcription backend", "err", err)
		return 1
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect session store", "err", err)
		return 1
	}
	defer closeStore()

	svc := assess.New(assess.Config{
		Provider:     provider,
		Store:        store,
		Metrics:      metrics,
		DefaultGrade: cfg.Assessment.DefaultGrade,
		Language:     cfg.Assessment.Language,
	})

	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			slog.SetDefault(newLogger(d.NewLogLevel))
			slog.Info("log level reloaded", "log_level", d.NewLogLevel)
		}
		if d.DefaultsChanged {
			svc.SetDefaults(d.NewDefaults.DefaultGrade, d.NewDefaults.Language)
			slog.Info("assessment defaults reloaded",
				"grade", d.NewDefaults.DefaultGrade, "language", d.NewDefaults.Language)
		}
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	checkers := []health.Checker{health.StoreChecker(store)}
	if providerName != "" {
		checkers = append(checkers, health.ProviderChecker(providerName, provider != nil))
	}

	server, err := web.New(web.Config{
		Addr:    cfg.Server.ListenAddr,
		TLS:     cfg.Server.TLS,
		Assess:  svc,
		Store:   store,
		Metrics: metrics,
		Health:  health.New(checkers...),
	})
	if err != nil {
		slog.Error("failed to assemble server", "err", err)
		return 1
	}

	printStartupSummary(cfg, providerName)
	slog.Info("server ready — press Ctrl+C to shut down")

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires the transcription backend factories that
// ship with Oratio into reg. ctx is used by clients that authenticate at
// construction time.
func registerBuiltinProviders(ctx context.Context, reg *config.Registry) {
	reg.Register("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.ServerOption
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.NewServer(entry.BaseURL, opts...)
	})

	reg.Register("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.ModelPath
		if modelPath == "" {
			modelPath = entry.Model
		}
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.Register("google", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []google.Option
		if entry.Language != "" {
			opts = append(opts, google.WithLanguage(entry.Language))
		}
		if entry.Model != "" {
			opts = append(opts, google.WithModel(entry.Model))
		}
		return google.New(ctx, opts...)
	})

	reg.Register("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})

	reg.Register("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, deepgram.WithLanguage(entry.Language))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})
}

// buildTranscriber creates the primary backend plus any fallbacks and wraps
// them in the circuit-breaking failover chain. A config without a primary
// backend yields a nil provider; audio endpoints are then unavailable.
func buildTranscriber(cfg *config.Config, reg *config.Registry) (stt.Provider, string, error) {
	primaryName := cfg.Providers.Primary.Name
	if primaryName == "" {
		return nil, "", nil
	}

	primary, err := reg.Create(cfg.Providers.Primary)
	if err != nil {
		return nil, "", fmt.Errorf("create provider %q: %w", primaryName, err)
	}
	slog.Info("provider created", "name", primaryName, "role", "primary")

	t := resilience.NewTranscriber(primary, primaryName, resilience.FallbackConfig{})
	for _, entry := range cfg.Providers.Fallbacks {
		p, err := reg.Create(entry)
		if err != nil {
			return nil, "", fmt.Errorf("create fallback provider %q: %w", entry.Name, err)
		}
		t.AddFallback(entry.Name, p)
		slog.Info("provider created", "name", entry.Name, "role", "fallback")
	}
	return t, primaryName, nil
}

// buildStore connects the configured session store: Postgres when a DSN is
// set, in-memory otherwise.
func buildStore(ctx context.Context, cfg *config.Config) (sessionstore.Store, func(), error) {
	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		st, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("session store connected", "backend", "postgres")
		return st, st.Close, nil
	}
	slog.Info("session store running in memory; sessions are lost on restart")
	return sessionstore.NewMemStore(), func() {}, nil
}

func printStartupSummary(cfg *config.Config, providerName string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Oratio — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printLine("Transcription", orDefault(providerName, "(not configured)"))
	printLine("Fallbacks", fmt.Sprintf("%d", len(cfg.Providers.Fallbacks)))
	if cfg.Store.PostgresDSN != "" {
		printLine("Session store", "postgres")
	} else {
		printLine("Session store", "memory")
	}
	printLine("Default grade", fmt.Sprintf("%d", cfg.Assessment.DefaultGrade))
	printLine("Listen addr", orDefault(cfg.Server.ListenAddr, ":8080"))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printLine(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
