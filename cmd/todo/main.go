package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tailored-agentic-units/store/inspect"
	"github.com/tailored-agentic-units/store/observability"
	"github.com/tailored-agentic-units/store/store"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to store config file, JSON or TOML (optional)")
		inspectAddr = flag.String("inspect", "", "Serve the inspector service on this address, e.g. :8080")
		logFile     = flag.String("log", "", "Write logs to this file (the terminal is owned by the UI)")
		importDelay = flag.Duration("import-delay", 2*time.Second, "How long the import action takes to resolve")
		otlpURL     = flag.String("otel-endpoint", os.Getenv("STORE_OTEL_ENDPOINT"), "OTLP/HTTP endpoint URL for the otel observer (optional)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := store.DefaultConfig()
	if *configFile != "" {
		loaded, err := store.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Failed to apply environment: %v", err)
	}

	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		out = f
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	shutdown, err := setupTracing(context.Background(), *otlpURL)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	failures := make(chan error, 16)
	var s *store.Store[State]
	self := func() *store.Store[State] { return s }
	s, err = store.NewFromConfig(&cfg, State{}, newActions(*importDelay, self),
		store.WithErrorHandler(func(action string, err error) {
			logger.Warn("action failed", "action", action, "error", err)
			select {
			case failures <- err:
			default:
			}
		}),
	)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}

	if *inspectAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(inspect.NewHandler(s))
		server := &http.Server{Addr: *inspectAddr, Handler: mux}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("inspector stopped", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
		logger.Info("inspector listening", "addr", *inspectAddr)
	}

	if err := runUI(s, failures); err != nil {
		log.Fatalf("UI failed: %v", err)
	}
}
