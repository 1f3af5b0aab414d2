package html2pdf

// Notes:
// - BrowserRenderer is tested with fakeEngine; launching Chromium is left to
//   manual runs. Binary discovery is stubbed through lookPath/managedPath.
// - requestTracker is fed synthetic DevTools events.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeBrowserBin creates an empty file standing in for a browser binary.
func fakeBrowserBin(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "chromium")
	if err := os.WriteFile(bin, nil, 0o755); err != nil {
		t.Fatalf("failed to create fake binary: %v", err)
	}
	return bin
}

func newTestBrowser(t *testing.T, opts BrowserOptions, engine pdfEngine) *BrowserRenderer {
	t.Helper()
	r := newBrowserRenderer(opts, engine, zaptest.NewLogger(t))
	r.opts.Bin = opts.Bin
	r.lookPath = func() (string, bool) { return "", false }
	r.managedPath = func() string { return "" }
	return r
}

// blockingEngine waits for ctx to end.
type blockingEngine struct{}

func (blockingEngine) Name() string { return "blocking" }

func (blockingEngine) PrintPDF(ctx context.Context, _ pageJob) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// ---------------------------------------------------------------------------
// TestNewBrowserRenderer - Engine selection
// ---------------------------------------------------------------------------

func TestNewBrowserRenderer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		engine  string
		want    string
		wantErr bool
	}{
		{"", EngineRod, false},
		{"rod", EngineRod, false},
		{"ChromeDP", EngineChromedp, false},
		{"playwright", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.engine, func(t *testing.T) {
			t.Parallel()

			r, err := NewBrowserRenderer(BrowserOptions{Engine: tt.engine}, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEngine) {
					t.Errorf("NewBrowserRenderer(%q) error = %v, want ErrUnknownEngine", tt.engine, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBrowserRenderer(%q) error = %v", tt.engine, err)
			}
			if got := r.engine.Name(); got != tt.want {
				t.Errorf("engine = %q, want %q", got, tt.want)
			}
			if r.ID() != BackendBrowser {
				t.Errorf("ID() = %q, want browser", r.ID())
			}
		})
	}
}

func TestNewBrowserRenderer_Defaults(t *testing.T) {
	t.Parallel()

	r := newBrowserRenderer(BrowserOptions{}, &fakeEngine{}, zap.NewNop())

	if r.opts.Timeout != defaultBrowserTimeout {
		t.Errorf("Timeout = %v, want %v", r.opts.Timeout, defaultBrowserTimeout)
	}
	if r.opts.QuiescenceTimeout != 10*time.Second {
		t.Errorf("QuiescenceTimeout = %v, want 10s", r.opts.QuiescenceTimeout)
	}
	if r.opts.IdleWindow != 500*time.Millisecond {
		t.Errorf("IdleWindow = %v, want 500ms", r.opts.IdleWindow)
	}
}

// ---------------------------------------------------------------------------
// TestBrowserRenderer_Probe - Binary discovery
// ---------------------------------------------------------------------------

func TestBrowserRenderer_Probe(t *testing.T) {
	t.Parallel()

	bin := fakeBrowserBin(t)
	missing := filepath.Join(t.TempDir(), "no-chrome")

	tests := []struct {
		name    string
		bin     string
		look    string
		managed string
		want    Availability
	}{
		{"explicit binary", bin, "", "", Available},
		{"explicit binary missing", missing, bin, bin, Missing},
		{"system browser", "", bin, "", Available},
		{"managed download", "", "", bin, Available},
		{"managed path without file", "", "", missing, Missing},
		{"nothing installed", "", "", "", Missing},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestBrowser(t, BrowserOptions{Bin: tt.bin}, &fakeEngine{})
			r.lookPath = func() (string, bool) { return tt.look, tt.look != "" }
			r.managedPath = func() string { return tt.managed }

			if got := r.Probe(context.Background()); got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBrowserRenderer_ProbePanic(t *testing.T) {
	t.Parallel()

	r := newTestBrowser(t, BrowserOptions{}, &fakeEngine{})
	r.lookPath = func() (string, bool) { panic("lookup exploded") }

	if got := r.Probe(context.Background()); got != Missing {
		t.Errorf("Probe() = %v, want missing", got)
	}
}

func TestBrowserRenderer_Describe(t *testing.T) {
	t.Parallel()

	bin := fakeBrowserBin(t)
	r := newTestBrowser(t, BrowserOptions{Bin: bin}, &fakeEngine{})

	if got := r.Describe(context.Background()); got != bin+" (engine fake)" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestBrowserRenderer_ProvisionSteps(t *testing.T) {
	t.Parallel()

	steps := newTestBrowser(t, BrowserOptions{}, &fakeEngine{}).ProvisionSteps()
	if len(steps) != 1 || steps[0].Name != "download chromium" || steps[0].Run == nil {
		t.Errorf("ProvisionSteps() = %+v, want a single download step", steps)
	}
}

// ---------------------------------------------------------------------------
// TestBrowserRenderer_Render - Engine orchestration and output
// ---------------------------------------------------------------------------

func TestBrowserRenderer_Render(t *testing.T) {
	t.Parallel()

	bin := fakeBrowserBin(t)
	engine := &fakeEngine{pdf: fakePDF}
	r := newTestBrowser(t, BrowserOptions{Bin: bin, NoSandbox: true}, engine)
	req := newRequest(t)

	res := r.Render(context.Background(), req, BuildPrintProfile())

	if !res.OK() {
		t.Fatalf("Render() error = %v", res.Err)
	}
	if res.OutputPath != req.DestinationPath || res.Size != int64(len(fakePDF)) {
		t.Errorf("result = %+v", res)
	}

	if len(engine.jobs) != 1 {
		t.Fatalf("engine calls = %d, want 1", len(engine.jobs))
	}
	job := engine.jobs[0]
	if job.Bin != bin || !job.NoSandbox {
		t.Errorf("job bin/sandbox = %q/%v", job.Bin, job.NoSandbox)
	}
	if !strings.HasPrefix(job.URL, "file://") || !strings.HasSuffix(job.URL, "/report.html") {
		t.Errorf("job URL = %q, want file URL of the source", job.URL)
	}
	if strings.Contains(pageBlock(t, job.CSS), "margin") {
		t.Error("browser stylesheet should not declare @page margins")
	}
	if !approx(job.PDF.MarginLeft, 1.5/cmPerInch) {
		t.Errorf("MarginLeft = %v, want 1.5cm in inches", job.PDF.MarginLeft)
	}
	if job.Quiescence != defaultQuiescenceTimeout || job.IdleWindow != defaultIdleWindow {
		t.Errorf("quiescence = %v window = %v", job.Quiescence, job.IdleWindow)
	}

	data, err := os.ReadFile(req.DestinationPath)
	if err != nil || string(data) != string(fakePDF) {
		t.Errorf("destination = %q (err %v), want the engine's PDF", data, err)
	}
	if names := listDir(t, filepath.Dir(req.DestinationPath)); !slices.Equal(names, []string{"report.html", "report.pdf"}) {
		t.Errorf("directory = %v, want only source and PDF", names)
	}
	if info, err := os.Stat(req.DestinationPath); err == nil && runtime.GOOS != "windows" && info.Mode().Perm() != outputMode {
		t.Errorf("published PDF mode = %v, want %v", info.Mode().Perm(), os.FileMode(outputMode))
	}
}

func TestBrowserRenderer_RenderFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		engine  pdfEngine
		opts    BrowserOptions
		noBin   bool
		wantErr error
		wantOp  string
	}{
		{
			name:    "browser not found",
			engine:  &fakeEngine{pdf: fakePDF},
			noBin:   true,
			wantErr: ErrBrowserNotFound,
			wantOp:  "launch",
		},
		{
			name:    "quiescence timeout",
			engine:  &fakeEngine{err: ErrQuiescenceTimeout},
			wantErr: ErrQuiescenceTimeout,
			wantOp:  "fake",
		},
		{
			name:    "page load failure",
			engine:  &fakeEngine{err: ErrPageLoad},
			wantErr: ErrPageLoad,
			wantOp:  "fake",
		},
		{
			name:    "engine returns garbage",
			engine:  &fakeEngine{pdf: []byte("<html></html>")},
			wantErr: ErrInvalidPDF,
			wantOp:  "publish",
		},
		{
			name:    "attempt timeout",
			engine:  blockingEngine{},
			opts:    BrowserOptions{Timeout: 30 * time.Millisecond},
			wantErr: ErrRenderTimeout,
			wantOp:  "blocking",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := tt.opts
			if tt.noBin {
				opts.Bin = filepath.Join(t.TempDir(), "no-chrome")
			} else {
				opts.Bin = fakeBrowserBin(t)
			}
			r := newTestBrowser(t, opts, tt.engine)
			req := newRequest(t)

			res := r.Render(context.Background(), req, BuildPrintProfile())

			if !errors.Is(res.Err, tt.wantErr) {
				t.Fatalf("Render() error = %v, want %v", res.Err, tt.wantErr)
			}
			var re *RenderError
			if !errors.As(res.Err, &re) || re.Op != tt.wantOp || re.Backend != BackendBrowser {
				t.Errorf("Render() error = %#v, want browser op %q", res.Err, tt.wantOp)
			}
			if _, err := os.Stat(req.DestinationPath); !os.IsNotExist(err) {
				t.Error("destination created by a failed render")
			}
			if names := listDir(t, filepath.Dir(req.DestinationPath)); len(names) != 1 {
				t.Errorf("directory = %v, want only the source", names)
			}
		})
	}
}

func TestBrowserRenderer_NotFoundSkipsEngine(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{pdf: fakePDF}
	r := newTestBrowser(t, BrowserOptions{}, engine)

	r.Render(context.Background(), newRequest(t), BuildPrintProfile())

	if len(engine.jobs) != 0 {
		t.Errorf("engine called %d times without a browser", len(engine.jobs))
	}
}

// ---------------------------------------------------------------------------
// TestHelpers - URL, script and PDF option builders
// ---------------------------------------------------------------------------

func TestFileURL(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("POSIX paths")
	}

	tests := []struct {
		path string
		want string
	}{
		{"/tmp/report.html", "file:///tmp/report.html"},
		{"/tmp/my report.html", "file:///tmp/my%20report.html"},
		{"/data/팀/index.html", "file:///data/%ED%8C%80/index.html"},
	}
	for _, tt := range tests {
		if got := fileURL(tt.path); got != tt.want {
			t.Errorf("fileURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestInjectStyleScript(t *testing.T) {
	t.Parallel()

	script := injectStyleScript("h1::after { content: \"</style>\"; }\n")

	if !strings.Contains(script, `document.createElement("style")`) {
		t.Errorf("script does not create a style element:\n%s", script)
	}
	if strings.Contains(script, "</style>") {
		t.Error("closing tag should be escaped in the script literal")
	}
	if !strings.Contains(script, `\"\u003c/style\u003e\"`) || !strings.Contains(script, `\n`) {
		t.Errorf("CSS not encoded as a JS string literal:\n%s", script)
	}
}

func TestBuildPDFOptions(t *testing.T) {
	t.Parallel()

	o := buildPDFOptions(BuildPrintProfile().browserPDFOptions())

	if o.MarginTop == nil || !approx(*o.MarginTop, 2/cmPerInch) {
		t.Errorf("MarginTop = %v, want 2cm in inches", o.MarginTop)
	}
	if o.MarginRight == nil || !approx(*o.MarginRight, 1.5/cmPerInch) {
		t.Errorf("MarginRight = %v, want 1.5cm in inches", o.MarginRight)
	}
	if o.PaperWidth == nil || !approx(*o.PaperWidth, PageA4.WidthInches()) {
		t.Errorf("PaperWidth = %v, want A4 width", o.PaperWidth)
	}
	if !o.PrintBackground || !o.PreferCSSPageSize {
		t.Error("PrintBackground and PreferCSSPageSize should be set")
	}
}

func TestRodLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	rodLogger{zap.New(core)}.Println("Download:", "50%")

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "Download: 50%" {
		t.Errorf("entries = %+v, want one debug line", entries)
	}
}

// ---------------------------------------------------------------------------
// TestRequestTracker - Network quiescence
// ---------------------------------------------------------------------------

func TestRequestTracker_Inflight(t *testing.T) {
	t.Parallel()

	tr := newRequestTracker()
	tr.handle(&network.EventRequestWillBeSent{RequestID: "1"})
	tr.handle(&network.EventRequestWillBeSent{RequestID: "2"})
	tr.handle(&network.EventRequestWillBeSent{RequestID: "3"})
	tr.handle(&network.EventLoadingFinished{RequestID: "1"})
	tr.handle(&network.EventLoadingFailed{RequestID: "2"})
	tr.handle("unrelated event")

	if got := tr.inflight(); got != 1 {
		t.Errorf("inflight() = %d, want 1", got)
	}
	if tr.idleFor(0, time.Now().Add(time.Hour)) {
		t.Error("idleFor() = true with a request in flight")
	}

	tr.handle(&network.EventLoadingFinished{RequestID: "3"})
	now := time.Now()
	if tr.idleFor(time.Second, now) {
		t.Error("idleFor(1s) = true right after the last request finished")
	}
	if !tr.idleFor(time.Second, now.Add(2*time.Second)) {
		t.Error("idleFor(1s) = false after 2s of silence")
	}
}

func TestRequestTracker_WaitIdle(t *testing.T) {
	t.Parallel()

	t.Run("idle network returns", func(t *testing.T) {
		t.Parallel()

		tr := newRequestTracker()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tr.waitIdle(ctx, 20*time.Millisecond); err != nil {
			t.Errorf("waitIdle() error = %v", err)
		}
	})

	t.Run("stuck request times out", func(t *testing.T) {
		t.Parallel()

		tr := newRequestTracker()
		tr.handle(&network.EventRequestWillBeSent{RequestID: "poll"})
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		if err := tr.waitIdle(ctx, 20*time.Millisecond); !errors.Is(err, ErrQuiescenceTimeout) {
			t.Errorf("waitIdle() error = %v, want ErrQuiescenceTimeout", err)
		}
	})

	t.Run("cancellation is not a timeout", func(t *testing.T) {
		t.Parallel()

		tr := newRequestTracker()
		tr.handle(&network.EventRequestWillBeSent{RequestID: "poll"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := tr.waitIdle(ctx, 20*time.Millisecond); !errors.Is(err, context.Canceled) {
			t.Errorf("waitIdle() error = %v, want context.Canceled", err)
		}
	})
}

func TestQuiescence(t *testing.T) {
	t.Parallel()

	t.Run("budget starts after load", func(t *testing.T) {
		t.Parallel()

		q := newQuiescence(context.Background())
		defer q.stop()

		// A slow page load must not consume the idle budget.
		time.Sleep(30 * time.Millisecond)
		if err := q.ctx.Err(); err != nil {
			t.Fatalf("context done before start: %v", err)
		}

		q.start(10 * time.Millisecond)
		select {
		case <-q.ctx.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("budget never expired")
		}
		if !q.expired() {
			t.Errorf("expired() = false, cause = %v", context.Cause(q.ctx))
		}
	})

	t.Run("parent cancellation is not a timeout", func(t *testing.T) {
		t.Parallel()

		parent, cancel := context.WithCancel(context.Background())
		q := newQuiescence(parent)
		defer q.stop()
		q.start(time.Hour)

		cancel()
		<-q.ctx.Done()
		if q.expired() {
			t.Error("expired() = true after parent cancellation")
		}
	})

	t.Run("stop before expiry", func(t *testing.T) {
		t.Parallel()

		q := newQuiescence(context.Background())
		q.start(time.Hour)
		q.stop()

		if q.expired() {
			t.Error("expired() = true after stop")
		}
	})
}
