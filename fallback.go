package html2pdf

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// openTimeout bounds the default-application opener.
const openTimeout = 15 * time.Second

// FallbackStatus is the result of presenting the manual fallback.
type FallbackStatus int

const (
	FallbackNotAttempted FallbackStatus = iota
	FallbackOpened
	FallbackOpenFailed
)

func (s FallbackStatus) String() string {
	switch s {
	case FallbackOpened:
		return "opened"
	case FallbackOpenFailed:
		return "open-failed"
	default:
		return "not-attempted"
	}
}

// Opener launches the host's default application for a file.
type Opener interface {
	Open(ctx context.Context, path string) error
	// Command returns the command line Open would run, for display.
	Command(path string) []string
}

// SystemOpener opens files with the platform opener: open, xdg-open or
// rundll32 url.dll,FileProtocolHandler.
type SystemOpener struct {
	Runner CommandRunner
}

// NewSystemOpener creates a SystemOpener running real subprocesses.
func NewSystemOpener() *SystemOpener {
	return &SystemOpener{Runner: &ExecRunner{}}
}

func (o *SystemOpener) Command(path string) []string {
	return openCommand(path)
}

func (o *SystemOpener) Open(ctx context.Context, path string) error {
	argv := openCommand(path)
	_, stderr, err := o.Runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}

// manualSteps is the fixed print-to-PDF procedure shown to the user.
func manualSteps() []string {
	return []string{
		"Open the print dialog (" + printShortcut + ")",
		"Choose \"Save as PDF\" as the destination",
		"Set the layout to Portrait",
		"Enable \"Background graphics\" under More settings",
		"Click Save and choose where to store the PDF",
	}
}

// ManualFallback prints the manual print-to-PDF procedure and opens the
// source in the default application.
type ManualFallback struct {
	opener Opener
	out    io.Writer
	logger *zap.Logger
}

// NewManualFallback creates a ManualFallback. A nil opener uses the system opener.
func NewManualFallback(opener Opener, out io.Writer, logger *zap.Logger) *ManualFallback {
	if opener == nil {
		opener = NewSystemOpener()
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManualFallback{opener: opener, out: out, logger: logger.Named("fallback")}
}

// Present always prints the numbered instructions, then invokes the opener once.
// Opener failures are returned wrapped in ErrManualFallbackOpen; Present never panics.
func (m *ManualFallback) Present(ctx context.Context, sourcePath string) (status FallbackStatus, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			status = FallbackOpenFailed
			err = fmt.Errorf("%w: panic: %v", ErrManualFallbackOpen, rec)
		}
	}()

	m.printGuide(sourcePath)

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	if err := m.opener.Open(ctx, sourcePath); err != nil {
		m.logger.Error("Could not open source file", zap.String("path", sourcePath), zap.Error(err))
		fmt.Fprintf(m.out, "\nCould not open the file automatically. Open it manually:\n  %s\n", sourcePath)
		return FallbackOpenFailed, fmt.Errorf("%w: %v", ErrManualFallbackOpen, err)
	}

	m.logger.Info("Source opened in default application", zap.String("path", sourcePath))
	return FallbackOpened, nil
}

func (m *ManualFallback) printGuide(sourcePath string) {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "Automatic PDF conversion is not available. Convert manually:")
	fmt.Fprintf(m.out, "  $ %s\n", strings.Join(m.opener.Command(sourcePath), " "))
	for i, step := range manualSteps() {
		fmt.Fprintf(m.out, "  %d. %s\n", i+1, step)
	}
	fmt.Fprintln(m.out)
}
