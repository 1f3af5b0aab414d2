package html2pdf

import (
	"errors"
	"fmt"
)

// Sentinel errors for library operations.
var (
	// Request validation errors.
	ErrMissingInput           = errors.New("input file not found")
	ErrInputIsDirectory       = errors.New("input path is a directory")
	ErrInputNotReadable       = errors.New("input file not readable")
	ErrDestinationNotWritable = errors.New("destination directory not writable")

	// Backend selection errors.
	ErrUnknownBackend = errors.New("unknown backend")
	ErrUnknownEngine  = errors.New("unknown browser engine")
	ErrNoBackends     = errors.New("no backends configured")

	// Provisioning errors.
	ErrProvision         = errors.New("provisioning failed")
	ErrProvisionDisabled = errors.New("backend missing and provisioning disabled")
	ErrNothingToInstall  = errors.New("backend has no automatic installation")

	// Render errors.
	ErrRender            = errors.New("render failed")
	ErrRenderTimeout     = errors.New("render timed out")
	ErrQuiescenceTimeout = errors.New("page did not reach network idle")
	ErrDocumentParse     = errors.New("document parse failed")
	ErrCommandNotFound   = errors.New("renderer command not found")
	ErrInvalidPDF        = errors.New("output is not a valid PDF")
	ErrBrowserConnect    = errors.New("failed to connect to browser")
	ErrBrowserNotFound   = errors.New("browser binary not found")
	ErrPageCreate        = errors.New("failed to create browser page")
	ErrPageLoad          = errors.New("failed to load page")
	ErrPDFGeneration     = errors.New("PDF generation failed")

	// Stylesheet errors.
	ErrInvalidStylesheet = errors.New("invalid stylesheet")
	ErrInvalidProfile    = errors.New("invalid print profile")

	// Terminal errors.
	ErrBackendsExhausted  = errors.New("all backends exhausted")
	ErrManualFallbackOpen = errors.New("failed to open source in default application")
)

// RenderError reports a failed render attempt of one backend.
// It matches ErrRender with errors.Is, in addition to its wrapped cause.
type RenderError struct {
	Backend BackendID
	Op      string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s backend: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }

// ProvisionError reports a failed provisioning step.
// Diagnostic carries the captured output of the failing step.
type ProvisionError struct {
	Backend    BackendID
	Step       string
	Diagnostic string
	Err        error
}

func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("%s backend: provision", e.Backend)
	if e.Step != "" {
		msg += fmt.Sprintf(" step %q", e.Step)
	}
	msg += fmt.Sprintf(": %v", e.Err)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

func (e *ProvisionError) Unwrap() error { return e.Err }

func (e *ProvisionError) Is(target error) bool { return target == ErrProvision }
