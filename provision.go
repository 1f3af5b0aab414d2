package html2pdf

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProvisionStep is one ordered installation action for a backend.
// Run returns the captured diagnostic output alongside any error.
type ProvisionStep struct {
	Name   string
	Notice string
	Run    func(ctx context.Context) (diagnostic string, err error)
}

// Provisioner installs a missing backend runtime. Each step is announced
// on the notice writer before it runs.
type Provisioner struct {
	notices io.Writer
	logger  *zap.Logger
}

// NewProvisioner creates a Provisioner. A nil writer discards notices.
func NewProvisioner(notices io.Writer, logger *zap.Logger) *Provisioner {
	if notices == nil {
		notices = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{notices: notices, logger: logger.Named("provision")}
}

// Provision runs the backend's steps in order and stops at the first failure.
// The returned error is a *ProvisionError carrying the failing step's diagnostic.
func (p *Provisioner) Provision(ctx context.Context, b Backend) (err error) {
	id := b.ID()
	steps := b.ProvisionSteps()
	if len(steps) == 0 {
		return &ProvisionError{Backend: id, Err: ErrNothingToInstall}
	}

	for i, step := range steps {
		fmt.Fprintf(p.notices, "[%s %d/%d] %s\n", id, i+1, len(steps), step.Notice)

		start := time.Now()
		diag, stepErr := runStep(ctx, step)
		if stepErr != nil {
			p.logger.Warn("Provisioning step failed",
				zap.String("backend", string(id)),
				zap.String("step", step.Name),
				zap.Error(stepErr))
			return &ProvisionError{
				Backend:    id,
				Step:       step.Name,
				Diagnostic: strings.TrimSpace(diag),
				Err:        stepErr,
			}
		}
		p.logger.Info("Provisioning step complete",
			zap.String("backend", string(id)),
			zap.String("step", step.Name),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

// runStep executes a step, converting a panic into an error.
func runStep(ctx context.Context, step ProvisionStep) (diag string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrProvision, r)
		}
	}()
	if step.Run == nil {
		return "", fmt.Errorf("%w: step %q has no action", ErrProvision, step.Name)
	}
	return step.Run(ctx)
}

// commandStep builds a step that runs argv through runner.
// The diagnostic is stderr, or stdout when stderr is empty.
func commandStep(runner CommandRunner, name, notice string, argv []string) ProvisionStep {
	return ProvisionStep{
		Name:   name,
		Notice: notice,
		Run: func(ctx context.Context) (string, error) {
			if len(argv) == 0 {
				return "", fmt.Errorf("%w: empty command", ErrProvision)
			}
			stdout, stderr, err := runner.Run(ctx, argv[0], argv[1:]...)
			if err != nil {
				if strings.TrimSpace(stderr) == "" {
					return stdout, err
				}
				return stderr, err
			}
			return "", nil
		},
	}
}
