package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/logging"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, backend construction, the opener and the logger.
type Environment struct {
	Now         func() time.Time
	Stdout      io.Writer
	Stderr      io.Writer
	NewBackends func(cfg *config.Config, logger *zap.Logger) ([]html2pdf.Backend, error)
	Opener      html2pdf.Opener
	NewLogger   func(level string) (*zap.Logger, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:         time.Now,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		NewBackends: newBackends,
		Opener:      html2pdf.NewSystemOpener(),
		NewLogger:   logging.New,
	}
}

// newBackends builds the configured backends in priority order.
func newBackends(cfg *config.Config, logger *zap.Logger) ([]html2pdf.Backend, error) {
	backends := make([]html2pdf.Backend, 0, len(cfg.Backends))
	for _, name := range cfg.Backends {
		id, err := html2pdf.ParseBackendID(name)
		if err != nil {
			return nil, err
		}

		switch id {
		case html2pdf.BackendStatic:
			backends = append(backends, html2pdf.NewStaticRenderer(html2pdf.StaticOptions{
				Command: cfg.Static.Command,
				Python:  cfg.Static.Python,
				Install: cfg.Static.Install,
				Timeout: config.Duration(cfg.Static.Timeout),
			}, logger))
		case html2pdf.BackendBrowser:
			browser, err := html2pdf.NewBrowserRenderer(html2pdf.BrowserOptions{
				Engine:            cfg.Browser.Engine,
				Bin:               cfg.Browser.Bin,
				NoSandbox:         cfg.Browser.NoSandbox,
				Timeout:           config.Duration(cfg.Browser.Timeout),
				QuiescenceTimeout: config.Duration(cfg.Browser.QuiescenceTimeout),
				IdleWindow:        config.Duration(cfg.Browser.IdleWindow),
			}, logger)
			if err != nil {
				return nil, err
			}
			backends = append(backends, browser)
		default:
			return nil, fmt.Errorf("%w: %q", html2pdf.ErrUnknownBackend, strings.TrimSpace(name))
		}
	}
	return backends, nil
}
