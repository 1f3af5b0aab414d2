package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alnah/go-html2pdf/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath  string        // HTML2PDF_CONFIG: config file name or path
	Backends    []string      // HTML2PDF_BACKENDS: comma-separated priority list
	NoProvision bool          // HTML2PDF_NO_PROVISION: "1" or "true" disables installs
	Engine      string        // HTML2PDF_BROWSER_ENGINE: rod or chromedp
	Timeout     time.Duration // HTML2PDF_TIMEOUT: per-backend render timeout
}

// knownEnvVars lists valid HTML2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"HTML2PDF_CONFIG":         true,
	"HTML2PDF_BACKENDS":       true,
	"HTML2PDF_NO_PROVISION":   true,
	"HTML2PDF_BROWSER_ENGINE": true,
	"HTML2PDF_TIMEOUT":        true,
	"HTML2PDF_CONTAINER":      true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed values are ignored rather than reported.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("HTML2PDF_CONFIG"),
		Engine:     strings.TrimSpace(os.Getenv("HTML2PDF_BROWSER_ENGINE")),
	}

	if list := os.Getenv("HTML2PDF_BACKENDS"); list != "" {
		for _, name := range strings.Split(list, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Backends = append(cfg.Backends, name)
			}
		}
	}

	switch strings.ToLower(os.Getenv("HTML2PDF_NO_PROVISION")) {
	case "1", "true", "yes":
		cfg.NoProvision = true
	}

	// Parse duration for timeout
	if timeout := os.Getenv("HTML2PDF_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized HTML2PDF_* variables.
// Helps catch typos like HTML2PDF_BACKEND instead of HTML2PDF_BACKENDS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "HTML2PDF_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values over the file config.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if len(env.Backends) > 0 {
		cfg.Backends = env.Backends
	}
	if env.NoProvision {
		cfg.Provision.Enabled = false
	}
	if env.Engine != "" {
		cfg.Browser.Engine = env.Engine
	}
	if env.Timeout > 0 {
		cfg.Static.Timeout = env.Timeout.String()
		cfg.Browser.Timeout = env.Timeout.String()
	}
}
