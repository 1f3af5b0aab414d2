package html2pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// BackendID names a rendering backend.
type BackendID string

// Supported backends.
const (
	BackendStatic  BackendID = "static"
	BackendBrowser BackendID = "browser"
)

// DefaultBackendOrder returns the priority order used when none is configured:
// the static renderer first, the headless browser second.
func DefaultBackendOrder() []BackendID {
	return []BackendID{BackendStatic, BackendBrowser}
}

// ParseBackendID converts a user-supplied name to a BackendID.
func ParseBackendID(s string) (BackendID, error) {
	switch id := BackendID(strings.ToLower(strings.TrimSpace(s))); id {
	case BackendStatic, BackendBrowser:
		return id, nil
	default:
		return "", fmt.Errorf("%w: %q (must be static or browser)", ErrUnknownBackend, s)
	}
}

// Availability is the result of a backend probe.
type Availability int

const (
	Missing Availability = iota
	Available
)

func (a Availability) String() string {
	if a == Available {
		return "available"
	}
	return "missing"
}

// ConversionRequest describes one HTML to PDF conversion.
// Build it with NewConversionRequest; it is not mutated afterwards.
type ConversionRequest struct {
	SourcePath      string
	DestinationPath string
}

// NewConversionRequest resolves both paths to absolute form and validates them.
// An empty destination defaults to the source path with a .pdf extension.
func NewConversionRequest(source, destination string) (ConversionRequest, error) {
	if strings.TrimSpace(source) == "" {
		return ConversionRequest{}, fmt.Errorf("%w: empty path", ErrMissingInput)
	}

	src, err := filepath.Abs(source)
	if err != nil {
		return ConversionRequest{}, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}

	if destination == "" {
		destination = fileutil.ReplaceExtension(src, ".pdf")
	}
	dst, err := filepath.Abs(destination)
	if err != nil {
		return ConversionRequest{}, fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
	}

	req := ConversionRequest{SourcePath: src, DestinationPath: dst}
	if err := req.Validate(); err != nil {
		return ConversionRequest{}, err
	}
	return req, nil
}

// Validate checks that the source is a readable file and that the
// destination directory accepts new files.
func (r ConversionRequest) Validate() error {
	info, err := os.Stat(r.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingInput, r.SourcePath)
		}
		return fmt.Errorf("%w: %v", ErrInputNotReadable, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputIsDirectory, r.SourcePath)
	}
	if err := fileutil.IsReadable(r.SourcePath); err != nil {
		return fmt.Errorf("%w: %v", ErrInputNotReadable, err)
	}

	if r.DestinationPath == "" {
		return fmt.Errorf("%w: empty destination", ErrDestinationNotWritable)
	}
	if r.DestinationPath == r.SourcePath {
		return fmt.Errorf("%w: destination would overwrite the source", ErrDestinationNotWritable)
	}
	if err := fileutil.DirWritable(filepath.Dir(r.DestinationPath)); err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationNotWritable, err)
	}
	return nil
}

// BackendResult is the outcome of one render attempt.
// A nil Err means Success, with OutputPath and Size describing the PDF.
type BackendResult struct {
	Backend    BackendID
	OutputPath string
	Size       int64
	Err        error
}

// OK reports whether the attempt produced a PDF.
func (r BackendResult) OK() bool { return r.Err == nil }

func succeeded(id BackendID, path string, size int64) BackendResult {
	return BackendResult{Backend: id, OutputPath: path, Size: size}
}

func failed(id BackendID, op string, err error) BackendResult {
	return BackendResult{Backend: id, Err: &RenderError{Backend: id, Op: op, Err: err}}
}

// State is a step of the conversion state machine.
type State int

const (
	StateInit State = iota
	StateProbing
	StateProvisioning
	StateRendering
	StateSucceeded
	StateNextBackend
	StateAllFailed
	StateManualFallback
	StateTerminal
)

var stateNames = [...]string{
	StateInit:           "init",
	StateProbing:        "probing",
	StateProvisioning:   "provisioning",
	StateRendering:      "rendering",
	StateSucceeded:      "succeeded",
	StateNextBackend:    "next-backend",
	StateAllFailed:      "all-failed",
	StateManualFallback: "manual-fallback",
	StateTerminal:       "terminal",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal is the final state reached by a conversion.
type Terminal int

const (
	// TerminalFailure means even the manual fallback could not be opened.
	TerminalFailure Terminal = iota
	// TerminalSuccess means a backend produced the PDF.
	TerminalSuccess
	// TerminalManual means every backend failed and the user was handed the manual procedure.
	TerminalManual
	// TerminalInvalidInput means the request was rejected before any backend ran.
	TerminalInvalidInput
)

func (t Terminal) String() string {
	switch t {
	case TerminalSuccess:
		return "success"
	case TerminalManual:
		return "manual"
	case TerminalInvalidInput:
		return "invalid-input"
	default:
		return "failure"
	}
}

// Attempt records what happened to one backend during a run.
type Attempt struct {
	Backend     BackendID
	Probe       Availability
	Provisioned bool
	Err         error
	Elapsed     time.Duration
}

// Outcome is the terminal report of a conversion run.
type Outcome struct {
	Terminal   Terminal
	Backend    BackendID
	OutputPath string
	Size       int64
	Attempts   []Attempt
	Fallback   FallbackStatus
	Trace      []State
	Err        error
}

// Diagnostics combines the errors recorded by every failed attempt.
func (o *Outcome) Diagnostics() error {
	var err error
	for _, a := range o.Attempts {
		err = multierr.Append(err, a.Err)
	}
	return err
}

// Summary renders the terminal state as a single line for the console.
func (o *Outcome) Summary() string {
	switch o.Terminal {
	case TerminalSuccess:
		return fmt.Sprintf("PDF produced at %s (%s, %s backend)", o.OutputPath, FormatSize(o.Size), o.Backend)
	case TerminalManual:
		return "Automatic conversion failed; manual fallback opened"
	case TerminalInvalidInput:
		return fmt.Sprintf("Invalid input: %v", o.Err)
	default:
		return fmt.Sprintf("Conversion failed: %v", o.Err)
	}
}

// FormatSize renders a byte count in kilobytes with one decimal.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
