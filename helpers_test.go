package html2pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakePDF is the smallest content recognized as a PDF.
var fakePDF = []byte("%PDF-1.7\n% fake document\n%%EOF\n")

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// writeHTML creates an HTML file in a fresh temp dir and returns its path.
func writeHTML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// newRequest builds a validated request for a fresh report.html.
func newRequest(t *testing.T) ConversionRequest {
	t.Helper()
	src := writeHTML(t, "report.html", "<html><body><h1>Report</h1></body></html>")
	req, err := NewConversionRequest(src, "")
	if err != nil {
		t.Fatalf("NewConversionRequest() error = %v", err)
	}
	return req
}

// listDir returns the names in dir, sorted by os.ReadDir.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ---------------------------------------------------------------------------
// fakeRunner - CommandRunner double
// ---------------------------------------------------------------------------

type runCall struct {
	Name string
	Args []string
}

func (c runCall) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// fakeRunner records calls and answers with fn, or success when fn is nil.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	fn    func(ctx context.Context, name string, args []string) (string, string, error)
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, runCall{Name: name, Args: append([]string(nil), args...)})
	r.mu.Unlock()
	if r.fn == nil {
		return "", "", nil
	}
	return r.fn(ctx, name, args)
}

func (r *fakeRunner) getCalls() []runCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runCall(nil), r.calls...)
}

var errExit1 = errors.New("exit status 1")

// ---------------------------------------------------------------------------
// fakeBackend - Backend double
// ---------------------------------------------------------------------------

// eventLog collects calls across fakes to assert ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Write lets the log double as the converter output, recording notices.
func (l *eventLog) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		if strings.TrimSpace(line) != "" {
			l.add("out:" + strings.TrimSpace(line))
		}
	}
	return len(p), nil
}

type fakeBackend struct {
	id         BackendID
	avail      Availability
	provision  error // nil = provisioning succeeds
	renderErr  error
	probePanic bool
	log        *eventLog

	mu       sync.Mutex
	profiles []PrintProfile
	requests []ConversionRequest
}

func (b *fakeBackend) ID() BackendID { return b.id }

func (b *fakeBackend) Probe(context.Context) Availability {
	b.log.add("probe:" + string(b.id))
	if b.probePanic {
		panic("probe exploded")
	}
	return b.avail
}

func (b *fakeBackend) ProvisionSteps() []ProvisionStep {
	return []ProvisionStep{{
		Name:   "install " + string(b.id),
		Notice: "installing " + string(b.id),
		Run: func(context.Context) (string, error) {
			b.log.add("provision:" + string(b.id))
			if b.provision != nil {
				return "diagnostic for " + string(b.id), b.provision
			}
			return "", nil
		},
	}}
}

func (b *fakeBackend) Render(_ context.Context, req ConversionRequest, profile PrintProfile) BackendResult {
	b.log.add("render:" + string(b.id))
	b.mu.Lock()
	b.profiles = append(b.profiles, profile)
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.renderErr != nil {
		return failed(b.id, "render", b.renderErr)
	}
	if err := os.WriteFile(req.DestinationPath, fakePDF, 0o644); err != nil {
		return failed(b.id, "output", err)
	}
	return succeeded(b.id, req.DestinationPath, int64(len(fakePDF)))
}

// ---------------------------------------------------------------------------
// fakeOpener - Opener double
// ---------------------------------------------------------------------------

type fakeOpener struct {
	err   error
	panic bool
	log   *eventLog

	mu    sync.Mutex
	paths []string
}

func (o *fakeOpener) Command(path string) []string { return []string{"fake-open", path} }

func (o *fakeOpener) Open(_ context.Context, path string) error {
	o.mu.Lock()
	o.paths = append(o.paths, path)
	o.mu.Unlock()
	if o.log != nil {
		o.log.add("open:" + filepath.Base(path))
	}
	if o.panic {
		panic("opener exploded")
	}
	return o.err
}

func (o *fakeOpener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.paths...)
}

// ---------------------------------------------------------------------------
// fakeEngine - pdfEngine double
// ---------------------------------------------------------------------------

type fakeEngine struct {
	pdf []byte
	err error

	mu   sync.Mutex
	jobs []pageJob
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) PrintPDF(_ context.Context, job pageJob) ([]byte, error) {
	e.mu.Lock()
	e.jobs = append(e.jobs, job)
	e.mu.Unlock()
	return e.pdf, e.err
}
