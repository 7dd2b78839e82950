package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/im-vishesh15th/bookmind/internal/backend"
	"github.com/im-vishesh15th/bookmind/internal/config"
	"github.com/im-vishesh15th/bookmind/internal/logging"
	"github.com/im-vishesh15th/bookmind/internal/otel"
)

// commonFlags are shared by every subcommand that talks to the backend.
type commonFlags struct {
	configPath *string
	apiURL     *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "YAML config file (default: search BOOKMIND_CONFIG, ./bookmind.yaml, ~/.bookmind/config.yaml)"),
		apiURL:     fs.String("api-url", "", "Backend base URL, overrides config and environment"),
	}
}

// loadConfig loads and validates configuration or exits.
func (f commonFlags) loadConfig() *config.Config {
	cfg, err := config.Load(*f.configPath)
	if err != nil {
		fatalf("config: %v", err)
	}
	if *f.apiURL != "" {
		cfg.Backend.URL = *f.apiURL
		if err := cfg.Validate(); err != nil {
			fatalf("config: %v", err)
		}
	}
	return cfg
}

// newClient builds the backend client described by cfg.
func newClient(cfg *config.Config, events *otel.Logger) *backend.Client {
	opts := []backend.Option{
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithRateLimit(cfg.Backend.RateLimit, cfg.Backend.RateBurst),
		backend.WithRecommendationCount(cfg.Recommend.Count),
		backend.WithEvents(events),
	}
	if !cfg.Backend.Breaker {
		opts = append(opts, backend.WithoutBreaker())
	}
	client, err := backend.New(cfg.Backend.URL, opts...)
	if err != nil {
		fatalf("backend: %v", err)
	}
	return client
}

// cliLogging sends human logs to stderr for one-shot commands.
func cliLogging(cfg *config.Config) {
	logging.SetOutput(os.Stderr, logging.ParseLevel(cfg.Logging.Level))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// argText joins the remaining positional arguments, so quoting is optional.
func argText(fs *flag.FlagSet, what string) string {
	s := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if s == "" {
		fmt.Fprintf(os.Stderr, "error: %s is required\n\n", what)
		fs.Usage()
		os.Exit(2)
	}
	return s
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
