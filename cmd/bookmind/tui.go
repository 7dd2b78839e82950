package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/im-vishesh15th/bookmind/internal/config"
	"github.com/im-vishesh15th/bookmind/internal/logging"
	"github.com/im-vishesh15th/bookmind/internal/metrics"
	"github.com/im-vishesh15th/bookmind/internal/otel"
	"github.com/im-vishesh15th/bookmind/internal/ui"
	"github.com/im-vishesh15th/bookmind/internal/ui/search"
)

func runTUI() {
	if err := tui(); err != nil {
		fatalf("%v", err)
	}
}

func tui() error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	common := addCommonFlags(fs)
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	noMouse := fs.Bool("no-mouse", false, "Disable mouse support")
	trace := fs.Bool("trace", false, "Record every UI message in the event log (same as "+otel.TraceEnv+"=1)")
	fs.Parse(os.Args[1:])
	if *trace {
		otel.SetTraceEnabled(true)
	}

	cfg := common.loadConfig()
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
		if err := cfg.Validate(); err != nil {
			fatalf("config: %v", err)
		}
	}

	if err := logging.Init(cfg.DataDir, logging.ParseLevel(cfg.Logging.Level)); err != nil {
		return err
	}
	defer logging.Close()

	events, err := otel.OpenFile(cfg.EventsPath())
	if err != nil {
		logging.Warn("event log disabled", "err", err)
		events = otel.NewNullLogger()
	}
	defer events.Close()

	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(ring)

	metrics.Register()
	stopMetrics := serveMetrics(cfg.Metrics.Addr)
	defer stopMetrics()

	client := newClient(cfg, events)
	logging.Info("backend configured", "url", client.BaseURL())

	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Comp:  "main",
		Msg:   "bookmind " + logging.Version,
		Extra: map[string]any{"backend": client.BaseURL()},
	})

	app := ui.NewAppWithConfig(ui.AppConfig{
		Catalog:     client,
		Recommender: client,
		Health:      client,
		Search:      searchConfig(cfg),
		Features:    ui.Features{Mouse: !*noMouse, HealthCheck: true},
		Obs:         ui.ObsConfig{Logger: events, Ring: ring},
	})

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if !*noMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	program := tea.NewProgram(app, opts...)

	start := time.Now()
	_, runErr := program.Run()
	if runErr != nil {
		logging.Error("program exited with error", "err", runErr)
		events.Error(otel.KindError, "main", runErr)
	}

	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindShutdown,
		Comp:  "main",
		Dur:   time.Since(start),
	})
	return runErr
}

func searchConfig(cfg *config.Config) search.Config {
	return search.Config{
		MaxSuggestions: cfg.Search.MaxSuggestions,
		Debounce:       cfg.Search.Debounce,
		MinQueryLength: cfg.Search.MinQueryLength,
		BlurGrace:      cfg.Search.BlurGrace,
	}
}

// serveMetrics starts the /metrics listener when addr is set and returns a
// shutdown func.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	logging.Info("metrics listening", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
