package main

import (
	"errors"
	"os"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/logging"
)

// Exit codes for html2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
// A manual fallback that opened is a success: the user has a working path.
const (
	ExitSuccess = 0 // PDF produced or manual fallback opened
	ExitGeneral = 1 // Total failure: manual fallback could not be opened
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // Input missing or unreadable, destination not writable
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Total failure (exit 1), checked first: its diagnostics may wrap anything
	if errors.Is(err, html2pdf.ErrManualFallbackOpen) ||
		errors.Is(err, html2pdf.ErrBackendsExhausted) {
		return ExitGeneral
	}

	// I/O errors (exit 3)
	if errors.Is(err, html2pdf.ErrMissingInput) ||
		errors.Is(err, html2pdf.ErrInputIsDirectory) ||
		errors.Is(err, html2pdf.ErrInputNotReadable) ||
		errors.Is(err, html2pdf.ErrDestinationNotWritable) ||
		errors.Is(err, ErrReadCSS) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, logging.ErrUnknownLevel) ||
		errors.Is(err, html2pdf.ErrUnknownBackend) ||
		errors.Is(err, html2pdf.ErrUnknownEngine) ||
		errors.Is(err, html2pdf.ErrNoBackends) ||
		errors.Is(err, html2pdf.ErrInvalidStylesheet) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrTooManyArgs) {
		return ExitUsage
	}

	return ExitGeneral
}
