package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// Static renderer defaults.
const (
	defaultStaticTimeout = 60 * time.Second
	versionCheckTimeout  = 10 * time.Second
)

// StaticOptions configures the WeasyPrint-based renderer.
type StaticOptions struct {
	// Command overrides command resolution, e.g. ["/opt/venv/bin/weasyprint"].
	Command []string
	// Python is the interpreter used for the module fallback and pip install.
	Python string
	// Install overrides the provisioning command.
	Install []string
	// Timeout bounds one render.
	Timeout time.Duration
}

func (o StaticOptions) python() string {
	if o.Python != "" {
		return o.Python
	}
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

func (o StaticOptions) install() []string {
	if len(o.Install) > 0 {
		return o.Install
	}
	return []string{o.python(), "-m", "pip", "install", "--user", "weasyprint"}
}

// StaticRenderer lays out static HTML with WeasyPrint. Scripts are not executed,
// so identical HTML and CSS always produce the same document.
type StaticRenderer struct {
	opts   StaticOptions
	runner CommandRunner
	logger *zap.Logger
}

// NewStaticRenderer creates a StaticRenderer running real subprocesses.
func NewStaticRenderer(opts StaticOptions, logger *zap.Logger) *StaticRenderer {
	return NewStaticRendererWith(opts, &ExecRunner{}, logger)
}

// NewStaticRendererWith creates a StaticRenderer with a custom runner (for testing).
func NewStaticRendererWith(opts StaticOptions, runner CommandRunner, logger *zap.Logger) *StaticRenderer {
	if runner == nil {
		panic("nil CommandRunner in NewStaticRendererWith")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultStaticTimeout
	}
	return &StaticRenderer{opts: opts, runner: runner, logger: logger.Named("static")}
}

func (r *StaticRenderer) ID() BackendID { return BackendStatic }

// candidates lists the command prefixes tried in order. pip --user installs
// scripts outside PATH on some systems, hence the module fallback.
func (r *StaticRenderer) candidates() [][]string {
	if len(r.opts.Command) > 0 {
		return [][]string{r.opts.Command}
	}
	return [][]string{
		{"weasyprint"},
		{r.opts.python(), "-m", "weasyprint"},
	}
}

// resolveCommand returns the first candidate answering --version.
func (r *StaticRenderer) resolveCommand(ctx context.Context) ([]string, string, error) {
	var errs []string
	for _, c := range r.candidates() {
		cctx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
		stdout, stderr, err := r.runner.Run(cctx, c[0], append(c[1:len(c):len(c)], "--version")...)
		cancel()
		if err == nil {
			return c, strings.TrimSpace(stdout), nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v %s", strings.Join(c, " "), err, strings.TrimSpace(stderr)))
	}
	return nil, "", fmt.Errorf("%w: %s", ErrCommandNotFound, strings.Join(errs, "; "))
}

// Probe checks that a WeasyPrint command answers. It never installs anything.
func (r *StaticRenderer) Probe(ctx context.Context) (avail Availability) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("Probe panicked", zap.Any("panic", rec))
			avail = Missing
		}
	}()

	cmd, version, err := r.resolveCommand(ctx)
	if err != nil {
		r.logger.Debug("WeasyPrint not found", zap.Error(err))
		return Missing
	}
	r.logger.Debug("WeasyPrint found", zap.Strings("command", cmd), zap.String("version", version))
	return Available
}

// Describe reports the resolved command and its version.
func (r *StaticRenderer) Describe(ctx context.Context) string {
	cmd, version, err := r.resolveCommand(ctx)
	if err != nil {
		return "weasyprint not found"
	}
	return fmt.Sprintf("%s (%s)", strings.Join(cmd, " "), version)
}

// ProvisionSteps installs the WeasyPrint package. The static renderer needs
// no auxiliary binary, so there is a single step.
func (r *StaticRenderer) ProvisionSteps() []ProvisionStep {
	argv := r.opts.install()
	return []ProvisionStep{
		commandStep(r.runner, "install weasyprint",
			"Installing WeasyPrint: "+strings.Join(argv, " "), argv),
	}
}

// Render converts the source to PDF into a temporary sibling of the
// destination, then publishes it atomically.
func (r *StaticRenderer) Render(ctx context.Context, req ConversionRequest, profile PrintProfile) (res BackendResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = failed(BackendStatic, "render", fmt.Errorf("panic: %v", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	if err := r.checkDocument(req.SourcePath); err != nil {
		return failed(BackendStatic, "parse", err)
	}

	cmd, _, err := r.resolveCommand(ctx)
	if err != nil {
		return failed(BackendStatic, "resolve", err)
	}

	cssPath, cleanupCSS, err := fileutil.WriteTempFile(profile.Stylesheet(BackendStatic), "css")
	if err != nil {
		return failed(BackendStatic, "stylesheet", err)
	}
	defer cleanupCSS()

	tmp, cleanupTmp, err := fileutil.TempSibling(req.DestinationPath)
	if err != nil {
		return failed(BackendStatic, "output", err)
	}
	defer cleanupTmp()

	args := append(cmd[1:len(cmd):len(cmd)],
		"--media-type", "print",
		"--stylesheet", cssPath,
		req.SourcePath, tmp)

	r.logger.Debug("Running WeasyPrint", zap.Strings("command", cmd), zap.String("source", req.SourcePath))
	_, stderr, err := r.runner.Run(ctx, cmd[0], args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failed(BackendStatic, "weasyprint", fmt.Errorf("%w after %s", ErrRenderTimeout, r.opts.Timeout))
		}
		return failed(BackendStatic, "weasyprint", fmt.Errorf("%w: %v: %s", ErrPDFGeneration, err, strings.TrimSpace(stderr)))
	}

	size, err := publishPDF(tmp, req.DestinationPath)
	if err != nil {
		return failed(BackendStatic, "publish", err)
	}
	return succeeded(BackendStatic, req.DestinationPath, size)
}

// checkDocument parses the source tree before handing it to WeasyPrint.
// Scripts are reported because the static layout ignores them.
func (r *StaticRenderer) checkDocument(path string) error {
	f, err := os.Open(path) // #nosec G304 -- source path validated by ConversionRequest
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}

	if n := countElements(doc, "script"); n > 0 {
		r.logger.Debug("Document scripts ignored by static layout", zap.Int("scripts", n))
	}
	return nil
}

// countElements counts element nodes with the given tag name.
func countElements(n *html.Node, tag string) int {
	count := 0
	if n.Type == html.ElementNode && n.Data == tag {
		count++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countElements(c, tag)
	}
	return count
}
