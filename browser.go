package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// Browser engines.
const (
	EngineRod      = "rod"
	EngineChromedp = "chromedp"
)

// Browser renderer defaults.
const (
	defaultBrowserTimeout    = 60 * time.Second
	defaultQuiescenceTimeout = 10 * time.Second
	defaultIdleWindow        = 500 * time.Millisecond
)

// BrowserOptions configures the headless browser renderer.
type BrowserOptions struct {
	// Engine selects the DevTools client: "rod" (default) or "chromedp".
	Engine string
	// Bin is an explicit Chrome/Chromium path; ROD_BROWSER_BIN is used when empty.
	Bin       string
	NoSandbox bool
	// Timeout bounds one whole attempt, launch included.
	Timeout time.Duration
	// QuiescenceTimeout bounds the wait for network idle.
	QuiescenceTimeout time.Duration
	// IdleWindow is how long the network must stay quiet to count as idle.
	IdleWindow time.Duration
}

// pageJob is everything an engine needs for one snapshot.
type pageJob struct {
	Bin        string
	NoSandbox  bool
	URL        string
	CSS        string
	PDF        pdfPageOptions
	Quiescence time.Duration
	IdleWindow time.Duration
}

// pdfEngine drives one browser through load, idle wait and print.
// Implementations must release the browser process before returning.
type pdfEngine interface {
	Name() string
	PrintPDF(ctx context.Context, job pageJob) ([]byte, error)
}

// BrowserRenderer renders through a headless Chromium, executing scripts and
// waiting for network quiescence before snapshotting.
type BrowserRenderer struct {
	opts   BrowserOptions
	engine pdfEngine
	logger *zap.Logger

	// lookPath and managedPath are replaced in tests.
	lookPath    func() (string, bool)
	managedPath func() string
}

// NewBrowserRenderer creates a BrowserRenderer for the configured engine.
func NewBrowserRenderer(opts BrowserOptions, logger *zap.Logger) (*BrowserRenderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser")

	var engine pdfEngine
	switch strings.ToLower(opts.Engine) {
	case "", EngineRod:
		engine = &rodEngine{logger: logger}
	case EngineChromedp:
		engine = &chromedpEngine{logger: logger}
	default:
		return nil, fmt.Errorf("%w: %q (must be rod or chromedp)", ErrUnknownEngine, opts.Engine)
	}
	return newBrowserRenderer(opts, engine, logger), nil
}

func newBrowserRenderer(opts BrowserOptions, engine pdfEngine, logger *zap.Logger) *BrowserRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultBrowserTimeout
	}
	if opts.QuiescenceTimeout <= 0 {
		opts.QuiescenceTimeout = defaultQuiescenceTimeout
	}
	if opts.IdleWindow <= 0 {
		opts.IdleWindow = defaultIdleWindow
	}
	if opts.Bin == "" {
		opts.Bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CI") == "true" {
		opts.NoSandbox = true
	}
	return &BrowserRenderer{
		opts:        opts,
		engine:      engine,
		logger:      logger,
		lookPath:    launcher.LookPath,
		managedPath: func() string { return launcher.NewBrowser().BinPath() },
	}
}

func (r *BrowserRenderer) ID() BackendID { return BackendBrowser }

// resolveBinary finds a browser without downloading: explicit path first,
// then the system install, then a binary previously fetched by provisioning.
func (r *BrowserRenderer) resolveBinary() (string, bool) {
	if r.opts.Bin != "" {
		return r.opts.Bin, fileutil.FileExists(r.opts.Bin)
	}
	if p, ok := r.lookPath(); ok {
		return p, true
	}
	if p := r.managedPath(); p != "" && fileutil.FileExists(p) {
		return p, true
	}
	return "", false
}

// Probe reports whether a browser binary is present.
func (r *BrowserRenderer) Probe(_ context.Context) (avail Availability) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("Probe panicked", zap.Any("panic", rec))
			avail = Missing
		}
	}()

	bin, ok := r.resolveBinary()
	if !ok {
		r.logger.Debug("Browser not found", zap.String("configured", r.opts.Bin))
		return Missing
	}
	r.logger.Debug("Browser found", zap.String("bin", bin), zap.String("engine", r.engine.Name()))
	return Available
}

// Describe reports the resolved binary and engine.
func (r *BrowserRenderer) Describe(_ context.Context) string {
	bin, ok := r.resolveBinary()
	if !ok {
		return "browser not found"
	}
	return fmt.Sprintf("%s (engine %s)", bin, r.engine.Name())
}

// ProvisionSteps downloads a Chromium build into rod's cache directory.
// The DevTools clients are compiled in, so the browser binary is the only
// runtime to install.
func (r *BrowserRenderer) ProvisionSteps() []ProvisionStep {
	b := launcher.NewBrowser()
	return []ProvisionStep{{
		Name:   "download chromium",
		Notice: "Downloading Chromium into " + b.Dir(),
		Run: func(ctx context.Context) (string, error) {
			b.Context = ctx
			b.Logger = rodLogger{r.logger}
			if err := b.Download(); err != nil {
				return err.Error(), err
			}
			return "", nil
		},
	}}
}

// Render loads the source in a fresh browser and prints it to PDF.
func (r *BrowserRenderer) Render(ctx context.Context, req ConversionRequest, profile PrintProfile) (res BackendResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = failed(BackendBrowser, "render", fmt.Errorf("panic: %v", rec))
		}
	}()

	bin, ok := r.resolveBinary()
	if !ok {
		return failed(BackendBrowser, "launch", ErrBrowserNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	job := pageJob{
		Bin:        bin,
		NoSandbox:  r.opts.NoSandbox,
		URL:        fileURL(req.SourcePath),
		CSS:        profile.Stylesheet(BackendBrowser),
		PDF:        profile.browserPDFOptions(),
		Quiescence: r.opts.QuiescenceTimeout,
		IdleWindow: r.opts.IdleWindow,
	}

	r.logger.Debug("Printing page",
		zap.String("engine", r.engine.Name()),
		zap.String("url", job.URL),
		zap.Duration("quiescence_timeout", job.Quiescence))

	pdf, err := r.engine.PrintPDF(ctx, job)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrQuiescenceTimeout) {
			err = fmt.Errorf("%w after %s: %v", ErrRenderTimeout, r.opts.Timeout, err)
		}
		return failed(BackendBrowser, r.engine.Name(), err)
	}

	tmp, cleanup, err := fileutil.TempSibling(req.DestinationPath)
	if err != nil {
		return failed(BackendBrowser, "output", err)
	}
	defer cleanup()

	// #nosec G306 -- PDF output files are intended to be readable
	if err := os.WriteFile(tmp, pdf, outputMode); err != nil {
		return failed(BackendBrowser, "output", err)
	}

	size, err := publishPDF(tmp, req.DestinationPath)
	if err != nil {
		return failed(BackendBrowser, "publish", err)
	}
	return succeeded(BackendBrowser, req.DestinationPath, size)
}

// fileURL builds a file:// URL for an absolute path, on every platform.
func fileURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// rodLogger routes rod's download progress into zap at debug level.
type rodLogger struct {
	logger *zap.Logger
}

func (l rodLogger) Println(v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
