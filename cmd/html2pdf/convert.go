package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/hints"
	"github.com/alnah/go-html2pdf/internal/yamlutil"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput     = errors.New("no input specified")
	ErrTooManyArgs = errors.New("expected a single input file")
	ErrReadCSS     = errors.New("failed to read CSS file")
)

// reportedError marks an error whose details were already written to the console.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// runConvert resolves configuration, builds the converter and runs one conversion.
// Manual fallback counts as success: it returns nil.
func runConvert(ctx context.Context, positionalArgs []string, flags *convertFlags, env *Environment) error {
	warnUnknownEnvVars(env.Stderr)

	cfg, err := resolveConfig(flags, loadEnvConfig())
	if err != nil {
		return err
	}

	if flags.mode.showConfig {
		data, err := yamlutil.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(data)
		return err
	}

	if flags.mode.printCSS != "" {
		id, err := html2pdf.ParseBackendID(flags.mode.printCSS)
		if err != nil {
			return err
		}
		if err := html2pdf.ValidateStylesheet([]byte(cfg.Print.ExtraCSS)); err != nil {
			return err
		}
		fmt.Fprint(env.Stdout, printProfile(cfg).Stylesheet(id))
		return nil
	}

	if len(positionalArgs) == 0 {
		return ErrNoInput
	}
	if len(positionalArgs) > 1 {
		return fmt.Errorf("%w, got %d: %s", ErrTooManyArgs, len(positionalArgs), strings.Join(positionalArgs, " "))
	}

	req, err := html2pdf.NewConversionRequest(positionalArgs[0], flags.output)
	if err != nil {
		if errors.Is(err, html2pdf.ErrDestinationNotWritable) {
			return fmt.Errorf("%w%s", err, hints.ForOutputDirectory())
		}
		return err
	}

	logger, err := env.NewLogger(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	backends, err := env.NewBackends(cfg, logger)
	if err != nil {
		return err
	}

	if flags.mode.dryRun {
		return printPlan(env.Stdout, req, cfg, backends)
	}

	conv, err := html2pdf.NewConverter(
		html2pdf.WithBackends(backends...),
		html2pdf.WithProvisioning(cfg.Provision.Enabled),
		html2pdf.WithOpener(env.Opener),
		html2pdf.WithLogger(logger),
		html2pdf.WithOutput(env.Stdout),
		html2pdf.WithExtraCSS(cfg.Print.ExtraCSS),
	)
	if err != nil {
		return err
	}

	start := env.Now()
	out := conv.Convert(ctx, req)
	logger.Debug("Conversion took", zap.Duration("elapsed", env.Now().Sub(start)))

	fmt.Fprintln(env.Stdout, out.Summary())
	if out.Terminal != html2pdf.TerminalSuccess && !flags.common.quiet {
		printAttemptHints(env.Stderr, out)
	}

	switch out.Terminal {
	case html2pdf.TerminalSuccess, html2pdf.TerminalManual:
		return nil
	default:
		return &reportedError{err: out.Err}
	}
}

// resolveConfig layers defaults, the config file, environment and flags.
// Precedence: CLI flags > env vars > config file > defaults
func resolveConfig(flags *convertFlags, envCfg *envConfig) (*config.Config, error) {
	name := flags.common.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && !fileutil.IsFilePath(name) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	if err := mergeFlags(flags, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags applies CLI flag values over the config. Only flags that were
// given override; an extra stylesheet path is read here.
func mergeFlags(flags *convertFlags, cfg *config.Config) error {
	b := flags.backends
	if len(b.order) > 0 {
		cfg.Backends = b.order
	}
	if b.engine != "" {
		cfg.Browser.Engine = b.engine
	}
	if b.noProvision {
		cfg.Provision.Enabled = false
	}
	if b.timeout != "" {
		cfg.Static.Timeout = b.timeout
		cfg.Browser.Timeout = b.timeout
	}
	if b.quiescenceTimeout != "" {
		cfg.Browser.QuiescenceTimeout = b.quiescenceTimeout
	}

	if flags.extraCSS != "" {
		data, err := os.ReadFile(flags.extraCSS) // #nosec G304 -- user-provided stylesheet
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadCSS, err)
		}
		cfg.Print.ExtraCSS = string(data)
	}

	switch {
	case flags.common.quiet:
		cfg.Logging.Level = "none"
	case flags.common.verbose:
		cfg.Logging.Level = "debug"
	}
	return nil
}

// printProfile returns the print profile carrying the configured extra stylesheet.
func printProfile(cfg *config.Config) html2pdf.PrintProfile {
	p := html2pdf.BuildPrintProfile()
	p.ExtraCSS = cfg.Print.ExtraCSS
	return p
}

// printPlan describes what a conversion would do without probing or rendering.
func printPlan(w io.Writer, req html2pdf.ConversionRequest, cfg *config.Config, backends []html2pdf.Backend) error {
	if err := html2pdf.ValidateStylesheet([]byte(cfg.Print.ExtraCSS)); err != nil {
		return err
	}
	profile := printProfile(cfg)

	provisioning := "enabled"
	if !cfg.Provision.Enabled {
		provisioning = "disabled"
	}

	fmt.Fprintf(w, "Source:       %s\n", req.SourcePath)
	fmt.Fprintf(w, "Destination:  %s\n", req.DestinationPath)
	fmt.Fprintf(w, "Provisioning: %s\n", provisioning)
	fmt.Fprintln(w, "Backends:")
	for i, b := range backends {
		if b.ID() == html2pdf.BackendBrowser {
			fmt.Fprintf(w, "  %d. %s (engine %s)\n", i+1, b.ID(), cfg.Browser.Engine)
			continue
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, b.ID())
	}
	for _, b := range backends {
		fmt.Fprintf(w, "\n/* %s print stylesheet */\n", b.ID())
		fmt.Fprint(w, profile.Stylesheet(b.ID()))
	}
	return nil
}

// printAttemptHints writes one actionable hint per failed backend.
func printAttemptHints(w io.Writer, out *html2pdf.Outcome) {
	for _, a := range out.Attempts {
		if a.Err == nil {
			continue
		}
		if hint := hintFor(a.Backend, a.Err); hint != "" {
			fmt.Fprintf(w, "%s backend failed%s\n", a.Backend, hint)
		}
	}
}

// hintFor picks the hint matching a backend failure.
func hintFor(id html2pdf.BackendID, err error) string {
	switch {
	case errors.Is(err, html2pdf.ErrProvisionDisabled):
		return hints.ForProvisionDisabled()
	case errors.Is(err, html2pdf.ErrRenderTimeout), errors.Is(err, html2pdf.ErrQuiescenceTimeout):
		return hints.ForTimeout()
	case errors.Is(err, html2pdf.ErrDestinationNotWritable):
		return hints.ForOutputDirectory()
	case id == html2pdf.BackendStatic:
		return hints.ForWeasyPrint()
	case id == html2pdf.BackendBrowser:
		return hints.ForBrowser()
	default:
		return ""
	}
}
