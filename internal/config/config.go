// Package config loads bookmind settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete application configuration.
type Config struct {
	Backend   BackendConfig   `koanf:"backend"`
	Search    SearchConfig    `koanf:"search"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`

	// DataDir holds logs and the event log. Defaults to ~/.bookmind.
	DataDir string `koanf:"data_dir" validate:"required"`
}

// BackendConfig describes the recommendation service connection.
type BackendConfig struct {
	URL       string        `koanf:"url" validate:"required,url"`
	Timeout   time.Duration `koanf:"timeout" validate:"min=100ms,max=2m"`
	RateLimit float64       `koanf:"rate_limit" validate:"gte=0"` // requests/second, 0 disables
	RateBurst int           `koanf:"rate_burst" validate:"gte=0"`
	Breaker   bool          `koanf:"breaker"`
}

// SearchConfig tunes the suggestion dropdown.
type SearchConfig struct {
	MaxSuggestions int           `koanf:"max_suggestions" validate:"min=1,max=50"`
	Debounce       time.Duration `koanf:"debounce" validate:"min=50ms,max=2s"`
	MinQueryLength int           `koanf:"min_query_length" validate:"min=2,max=10"`
	BlurGrace      time.Duration `koanf:"blur_grace" validate:"min=0,max=2s"`
}

// RecommendConfig tunes recommendation requests.
type RecommendConfig struct {
	// Count is sent as num_recommendations. 0 lets the backend decide.
	Count int `koanf:"count" validate:"min=0,max=20"`
}

type LoggingConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	// EventsFile is the JSONL event log. Relative paths resolve under DataDir.
	EventsFile string `koanf:"events_file"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. "127.0.0.1:9464".
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// DefaultDataDir returns ~/.bookmind, or .bookmind when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".bookmind"
	}
	return filepath.Join(home, ".bookmind")
}

func defaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:       "http://localhost:8000",
			Timeout:   10 * time.Second,
			RateLimit: 5,
			RateBurst: 5,
			Breaker:   true,
		},
		Search: SearchConfig{
			MaxSuggestions: 8,
			Debounce:       300 * time.Millisecond,
			MinQueryLength: 2,
			BlurGrace:      200 * time.Millisecond,
		},
		Recommend: RecommendConfig{
			Count: 0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			EventsFile: "events.jsonl",
		},
		DataDir: DefaultDataDir(),
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// EventsPath returns the absolute event log path.
func (c *Config) EventsPath() string {
	if c.Logging.EventsFile == "" {
		return filepath.Join(c.DataDir, "events.jsonl")
	}
	if filepath.IsAbs(c.Logging.EventsFile) {
		return c.Logging.EventsFile
	}
	return filepath.Join(c.DataDir, c.Logging.EventsFile)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report koanf paths ("search.debounce") rather than Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks every field constraint and reports all violations.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.search.debounce"; drop the root type name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", field, fe.Value())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
