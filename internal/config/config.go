package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength     = 4096    // Filesystem paths
	MaxArgLength      = 1024    // One command-line argument
	MaxArgs           = 32      // Arguments in a command override
	MaxNameLength     = 20      // "static", "chromedp", "debug"
	MaxExtraCSSLength = 1 << 16 // Inline user stylesheet
)

// Valid enumerations.
var (
	Backends  = []string{"static", "browser"}
	Engines   = []string{"rod", "chromedp"}
	LogLevels = []string{"none", "normal", "debug"}
)

// Config holds all configuration for a conversion run.
type Config struct {
	Backends  []string        `yaml:"backends"`
	Provision ProvisionConfig `yaml:"provision"`
	Static    StaticConfig    `yaml:"static"`
	Browser   BrowserConfig   `yaml:"browser"`
	Print     PrintConfig     `yaml:"print"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProvisionConfig controls installation of missing backends.
type ProvisionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StaticConfig defines WeasyPrint options.
type StaticConfig struct {
	Command []string `yaml:"command"` // Empty = weasyprint, then python -m weasyprint
	Python  string   `yaml:"python"`  // Empty = python3 (python on Windows)
	Install []string `yaml:"install"` // Empty = python -m pip install --user weasyprint
	Timeout string   `yaml:"timeout"` // Go duration, e.g. "60s"
}

// BrowserConfig defines headless browser options.
type BrowserConfig struct {
	Engine            string `yaml:"engine"` // "rod" or "chromedp"
	Bin               string `yaml:"bin"`    // Empty = ROD_BROWSER_BIN, system browser, then downloaded
	NoSandbox         bool   `yaml:"noSandbox"`
	Timeout           string `yaml:"timeout"`
	QuiescenceTimeout string `yaml:"quiescenceTimeout"`
	IdleWindow        string `yaml:"idleWindow"`
}

// PrintConfig defines additions to the print profile.
type PrintConfig struct {
	ExtraCSS string `yaml:"extraCSS"` // Appended after the generated print rules
}

// LoggingConfig defines console logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // "none", "normal", "debug"
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Backends:  slices.Clone(Backends),
		Provision: ProvisionConfig{Enabled: true},
		Browser:   BrowserConfig{Engine: "rod"},
		Logging:   LoggingConfig{Level: "normal"},
	}
}

// Validate checks enumerations, durations and field lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("%w: backends: at least one backend is required", ErrInvalidValue)
	}
	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		name := strings.ToLower(strings.TrimSpace(b))
		if !slices.Contains(Backends, name) {
			return fmt.Errorf("%w: backends[%d]: %q (must be %s)", ErrInvalidValue, i, b, strings.Join(Backends, " or "))
		}
		if seen[name] {
			return fmt.Errorf("%w: backends[%d]: %q listed twice", ErrInvalidValue, i, b)
		}
		seen[name] = true
	}

	// Validate static fields
	if err := validateArgs("static.command", c.Static.Command); err != nil {
		return err
	}
	if err := validateArgs("static.install", c.Static.Install); err != nil {
		return err
	}
	if err := validateFieldLength("static.python", c.Static.Python, MaxPathLength); err != nil {
		return err
	}
	if err := validateDuration("static.timeout", c.Static.Timeout); err != nil {
		return err
	}

	// Validate browser fields
	if c.Browser.Engine != "" && !slices.Contains(Engines, strings.ToLower(c.Browser.Engine)) {
		return fmt.Errorf("%w: browser.engine: %q (must be %s)", ErrInvalidValue, c.Browser.Engine, strings.Join(Engines, " or "))
	}
	if err := validateFieldLength("browser.bin", c.Browser.Bin, MaxPathLength); err != nil {
		return err
	}
	for field, value := range map[string]string{
		"browser.timeout":           c.Browser.Timeout,
		"browser.quiescenceTimeout": c.Browser.QuiescenceTimeout,
		"browser.idleWindow":        c.Browser.IdleWindow,
	} {
		if err := validateDuration(field, value); err != nil {
			return err
		}
	}

	if err := validateFieldLength("print.extraCSS", c.Print.ExtraCSS, MaxExtraCSSLength); err != nil {
		return err
	}

	if c.Logging.Level != "" && !slices.Contains(LogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: logging.level: %q (must be %s)", ErrInvalidValue, c.Logging.Level, strings.Join(LogLevels, ", "))
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateArgs(fieldName string, args []string) error {
	if len(args) > MaxArgs {
		return fmt.Errorf("%w: %s (%d args, max %d)", ErrFieldTooLong, fieldName, len(args), MaxArgs)
	}
	for i, a := range args {
		if err := validateFieldLength(fmt.Sprintf("%s[%d]", fieldName, i), a, MaxArgLength); err != nil {
			return err
		}
	}
	if len(args) > 0 && strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("%w: %s: empty program name", ErrInvalidValue, fieldName)
	}
	return nil
}

func validateDuration(fieldName, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, fieldName, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidValue, fieldName, value)
	}
	return nil
}

// Duration parses a validated duration field. Empty means zero, which
// renderers replace with their default.
func Duration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their DefaultConfig value.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
func resolveConfigPath(name string) (string, error) {
	triedPaths := SearchPaths(name)
	for _, p := range triedPaths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// SearchPaths lists the files LoadConfig tries for a config name, in order.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-html2pdf/
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "go-html2pdf", name+ext))
		}
	}
	return paths
}
