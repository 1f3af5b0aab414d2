package main

// Notes:
// - Shared fakes for CLI tests: stubBackend renders a minimal PDF to the
//   requested destination, stubOpener records the files it was asked to open.
// - newTestEnv wires both into an Environment with captured stdout/stderr and
//   a no-op logger, so no test touches WeasyPrint, Chrome or the desktop.
// No coverage gaps: this is test infrastructure, not production code.

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

var errRenderBoom = errors.New("render exploded")

const minimalPDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n"

type stubBackend struct {
	id        html2pdf.BackendID
	avail     html2pdf.Availability
	renderErr error

	mu      sync.Mutex
	renders int
}

func (b *stubBackend) ID() html2pdf.BackendID { return b.id }

func (b *stubBackend) Probe(context.Context) html2pdf.Availability { return b.avail }

func (b *stubBackend) ProvisionSteps() []html2pdf.ProvisionStep { return nil }

func (b *stubBackend) Render(_ context.Context, req html2pdf.ConversionRequest, _ html2pdf.PrintProfile) html2pdf.BackendResult {
	b.mu.Lock()
	b.renders++
	b.mu.Unlock()

	if b.renderErr != nil {
		return html2pdf.BackendResult{Backend: b.id, Err: b.renderErr}
	}
	if err := os.WriteFile(req.DestinationPath, []byte(minimalPDF), 0o644); err != nil {
		return html2pdf.BackendResult{Backend: b.id, Err: err}
	}
	return html2pdf.BackendResult{Backend: b.id, OutputPath: req.DestinationPath, Size: int64(len(minimalPDF))}
}

func (b *stubBackend) renderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renders
}

type stubOpener struct {
	err error

	mu     sync.Mutex
	opened []string
}

func (o *stubOpener) Open(_ context.Context, path string) error {
	o.mu.Lock()
	o.opened = append(o.opened, path)
	o.mu.Unlock()
	return o.err
}

func (o *stubOpener) Command(path string) []string {
	return []string{"stub-open", path}
}

func (o *stubOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	opener *stubOpener
	cfg    *config.Config // last config handed to NewBackends
}

// newTestEnv returns an Environment whose NewBackends ignores the config
// order and hands out the given backends.
func newTestEnv(t *testing.T, backends ...html2pdf.Backend) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		opener: &stubOpener{},
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		Stdout: te.stdout,
		Stderr: te.stderr,
		NewBackends: func(cfg *config.Config, _ *zap.Logger) ([]html2pdf.Backend, error) {
			te.cfg = cfg
			return backends, nil
		},
		Opener:    te.opener,
		NewLogger: func(string) (*zap.Logger, error) { return zap.NewNop(), nil },
	}
	return te
}

// writeHTML creates an HTML file in a fresh temp dir and returns its path.
func writeHTML(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("<html><body><h1>Report</h1></body></html>"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}
