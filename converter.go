package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Converter drives backends in priority order through probe, provision and
// render, and falls back to the manual procedure when all of them fail.
// A Converter runs one conversion at a time.
type Converter struct {
	backends      []Backend
	provisioner   *Provisioner
	fallback      *ManualFallback
	opener        Opener
	logger        *zap.Logger
	out           io.Writer
	autoProvision bool
	extraCSS      string
}

// Option configures a Converter.
type Option func(*Converter)

// WithBackends sets the backends in priority order. An empty list makes
// NewConverter fail with ErrNoBackends.
func WithBackends(backends ...Backend) Option {
	return func(c *Converter) {
		c.backends = append([]Backend{}, backends...)
	}
}

// WithProvisioning enables or disables installing missing backends.
func WithProvisioning(enabled bool) Option {
	return func(c *Converter) {
		c.autoProvision = enabled
	}
}

// WithOpener sets the default-application opener used by the manual fallback.
func WithOpener(o Opener) Option {
	return func(c *Converter) {
		c.opener = o
	}
}

// WithLogger sets the status logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOutput sets the writer for provisioning notices and fallback instructions.
func WithOutput(w io.Writer) Option {
	return func(c *Converter) {
		if w != nil {
			c.out = w
		}
	}
}

// WithExtraCSS appends a user stylesheet after the generated print rules.
func WithExtraCSS(css string) Option {
	return func(c *Converter) {
		c.extraCSS = css
	}
}

// NewConverter creates a Converter. Without WithBackends it uses the static
// renderer then the rod browser renderer, both with default options.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		logger:        zap.NewNop(),
		out:           io.Discard,
		autoProvision: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.backends == nil {
		browser, err := NewBrowserRenderer(BrowserOptions{}, c.logger)
		if err != nil {
			return nil, err
		}
		c.backends = []Backend{NewStaticRenderer(StaticOptions{}, c.logger), browser}
	}
	if len(c.backends) == 0 {
		return nil, ErrNoBackends
	}

	if c.extraCSS != "" {
		if err := ValidateStylesheet([]byte(c.extraCSS)); err != nil {
			return nil, err
		}
	}

	c.provisioner = NewProvisioner(c.out, c.logger)
	c.fallback = NewManualFallback(c.opener, c.out, c.logger)
	return c, nil
}

// Convert runs the conversion state machine to a terminal state.
// It never panics and never returns an error: failures are recorded in the Outcome.
func (c *Converter) Convert(ctx context.Context, req ConversionRequest) (out *Outcome) {
	out = &Outcome{Terminal: TerminalFailure}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Conversion aborted", zap.Any("panic", r))
			out.Terminal = TerminalFailure
			out.Err = multierr.Append(out.Err, fmt.Errorf("internal error: %v", r))
		}
		c.enter(out, StateTerminal)
		c.logger.Debug("Conversion finished", zap.Stringer("terminal", out.Terminal))
	}()

	c.enter(out, StateInit)
	if err := req.Validate(); err != nil {
		out.Terminal = TerminalInvalidInput
		out.Err = err
		c.logger.Error("Invalid request", zap.Error(err))
		return out
	}

	profile := BuildPrintProfile()
	profile.ExtraCSS = c.extraCSS

	for _, b := range c.backends {
		attempt, res := c.attempt(ctx, out, b, req, profile)
		out.Attempts = append(out.Attempts, attempt)

		if attempt.Err == nil {
			c.enter(out, StateSucceeded)
			out.Terminal = TerminalSuccess
			out.Backend = res.Backend
			out.OutputPath = res.OutputPath
			out.Size = res.Size
			c.logger.Info("PDF produced",
				zap.String("backend", string(res.Backend)),
				zap.String("path", res.OutputPath),
				zap.String("size", FormatSize(res.Size)))
			return out
		}
		c.enter(out, StateNextBackend)
	}

	c.enter(out, StateAllFailed)
	exhausted := fmt.Errorf("%w: %w", ErrBackendsExhausted, out.Diagnostics())
	c.logger.Warn("All backends failed", zap.Error(exhausted))

	c.enter(out, StateManualFallback)
	status, err := c.fallback.Present(ctx, req.SourcePath)
	out.Fallback = status
	if err != nil {
		out.Terminal = TerminalFailure
		out.Err = multierr.Append(err, exhausted)
		return out
	}
	out.Terminal = TerminalManual
	out.Err = exhausted
	return out
}

// attempt drives one backend through probe, provision and render.
// Failures are returned in Attempt.Err; the backend is never retried.
func (c *Converter) attempt(ctx context.Context, out *Outcome, b Backend, req ConversionRequest, profile PrintProfile) (Attempt, BackendResult) {
	id := b.ID()
	start := time.Now()
	a := Attempt{Backend: id}
	log := c.logger.With(zap.String("backend", string(id)))

	c.enter(out, StateProbing)
	a.Probe = c.probe(ctx, b)
	log.Info("Probe", zap.Stringer("result", a.Probe))

	if a.Probe == Missing {
		if !c.autoProvision {
			a.Err = &ProvisionError{Backend: id, Err: ErrProvisionDisabled}
			a.Elapsed = time.Since(start)
			log.Warn("Backend skipped", zap.Error(a.Err))
			return a, BackendResult{}
		}

		c.enter(out, StateProvisioning)
		if err := c.provisioner.Provision(ctx, b); err != nil {
			a.Err = err
			a.Elapsed = time.Since(start)
			log.Warn("Provisioning failed, trying next backend", zap.Error(err))
			return a, BackendResult{}
		}
		a.Provisioned = true
	}

	c.enter(out, StateRendering)
	log.Info("Rendering", zap.String("source", req.SourcePath))
	res := c.render(ctx, b, req, profile)
	a.Elapsed = time.Since(start)
	if res.Err != nil {
		a.Err = res.Err
		log.Warn("Render failed, trying next backend", zap.Error(res.Err), zap.Duration("elapsed", a.Elapsed))
		return a, res
	}
	log.Info("Render complete", zap.Duration("elapsed", a.Elapsed))
	return a, res
}

// probe converts a panicking probe into Missing.
func (c *Converter) probe(ctx context.Context, b Backend) (avail Availability) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("Probe panicked", zap.String("backend", string(b.ID())), zap.Any("panic", r))
			avail = Missing
		}
	}()
	return b.Probe(ctx)
}

// render normalizes backend results: panics and errors become *RenderError,
// and a success must point at the requested destination.
func (c *Converter) render(ctx context.Context, b Backend, req ConversionRequest, profile PrintProfile) (res BackendResult) {
	id := b.ID()
	defer func() {
		if r := recover(); r != nil {
			res = failed(id, "render", fmt.Errorf("panic: %v", r))
		}
	}()

	res = b.Render(ctx, req, profile)
	res.Backend = id
	if res.Err != nil {
		var re *RenderError
		if !errors.As(res.Err, &re) {
			res.Err = &RenderError{Backend: id, Op: "render", Err: res.Err}
		}
		return res
	}
	if res.OutputPath != req.DestinationPath {
		return failed(id, "publish", fmt.Errorf("output written to %q, want %q", res.OutputPath, req.DestinationPath))
	}
	return res
}

// enter records a state transition.
func (c *Converter) enter(out *Outcome, s State) {
	out.Trace = append(out.Trace, s)
	c.logger.Debug("State", zap.Stringer("state", s))
}
