package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "BOOKMIND_CONFIG"

// envMappings maps BOOKMIND_* variables (lowercased, prefix kept) to koanf paths.
var envMappings = map[string]string{
	"bookmind_api_url":             "backend.url",
	"bookmind_timeout":             "backend.timeout",
	"bookmind_rate_limit":          "backend.rate_limit",
	"bookmind_rate_burst":          "backend.rate_burst",
	"bookmind_breaker":             "backend.breaker",
	"bookmind_max_suggestions":     "search.max_suggestions",
	"bookmind_debounce":            "search.debounce",
	"bookmind_min_query_length":    "search.min_query_length",
	"bookmind_blur_grace":          "search.blur_grace",
	"bookmind_num_recommendations": "recommend.count",
	"bookmind_log_level":           "logging.level",
	"bookmind_events_file":         "logging.events_file",
	"bookmind_metrics_addr":        "metrics.addr",
	"bookmind_data_dir":            "data_dir",
}

// Load builds the configuration. path names an explicit YAML file; when
// empty, BOOKMIND_CONFIG and the default locations are searched and a
// missing file is not an error.
//
// Precedence: BOOKMIND_* env > NEXT_PUBLIC_API_URL > file > defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// The web build read a bare host from NEXT_PUBLIC_API_URL; honor it
	// below BOOKMIND_API_URL.
	legacy := env.Provider("NEXT_PUBLIC_", ".", func(key string) string {
		if key == "NEXT_PUBLIC_API_URL" {
			return "backend.url"
		}
		return ""
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	if err := k.Load(env.Provider("BOOKMIND_", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Backend.URL = withScheme(cfg.Backend.URL)
	cfg.DataDir = expandHome(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	candidates := []string{
		"bookmind.yaml",
		"bookmind.yml",
		filepath.Join(DefaultDataDir(), "config.yaml"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// withScheme prefixes bare hosts ("api.example.com:8000") with http://.
func withScheme(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || strings.Contains(u, "://") {
		return u
	}
	return "http://" + u
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
