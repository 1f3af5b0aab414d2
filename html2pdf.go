package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-html2pdf/internal/process"
)

// rodEngine implements pdfEngine using go-rod.
type rodEngine struct {
	logger *zap.Logger
}

func (e *rodEngine) Name() string { return EngineRod }

// PrintPDF launches a dedicated browser, loads the page, waits for network
// idle and prints it. The browser is killed on every return path.
func (e *rodEngine) PrintPDF(ctx context.Context, job pageJob) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().Context(ctx).Bin(job.Bin).Headless(true)
	if job.NoSandbox {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	defer func() {
		pid := l.PID()
		l.Kill()
		if pid > 0 {
			process.KillProcessGroup(pid)
		}
	}()

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	// Subscribe before navigating so requests fired during load are counted.
	// The quiescence budget only starts once the load event has fired.
	quiet := newQuiescence(ctx)
	defer quiet.stop()
	waitIdle := page.Context(quiet.ctx).WaitRequestIdle(job.IdleWindow, nil, nil, nil)

	if err := page.Navigate(job.URL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if job.CSS != "" {
		if err := page.AddStyleTag("", job.CSS); err != nil {
			return nil, fmt.Errorf("%w: injecting print stylesheet: %v", ErrPageLoad, err)
		}
	}

	quiet.start(job.Quiescence)
	waitIdle()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if quiet.expired() {
		return nil, fmt.Errorf("%w within %s", ErrQuiescenceTimeout, job.Quiescence)
	}
	e.logger.Debug("Network idle reached", zap.String("url", job.URL))

	reader, err := page.PDF(buildPDFOptions(job.PDF))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

// quiescence bounds a network-idle wait that is subscribed before navigation.
// Its context is cancelled with ErrQuiescenceTimeout once the budget given
// to start has elapsed; before start it only follows the parent.
type quiescence struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	timer  *time.Timer
}

func newQuiescence(parent context.Context) *quiescence {
	ctx, cancel := context.WithCancelCause(parent)
	return &quiescence{ctx: ctx, cancel: cancel}
}

func (q *quiescence) start(budget time.Duration) {
	q.timer = time.AfterFunc(budget, func() { q.cancel(ErrQuiescenceTimeout) })
}

// expired reports whether the budget ran out, as opposed to the parent ending.
func (q *quiescence) expired() bool {
	return errors.Is(context.Cause(q.ctx), ErrQuiescenceTimeout)
}

func (q *quiescence) stop() {
	if q.timer != nil {
		q.timer.Stop()
	}
	q.cancel(nil)
}

// buildPDFOptions constructs proto.PagePrintToPDF from the profile translation.
func buildPDFOptions(o pdfPageOptions) *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:        floatPtr(o.PaperWidth),
		PaperHeight:       floatPtr(o.PaperHeight),
		MarginTop:         floatPtr(o.MarginTop),
		MarginRight:       floatPtr(o.MarginRight),
		MarginBottom:      floatPtr(o.MarginBottom),
		MarginLeft:        floatPtr(o.MarginLeft),
		PrintBackground:   o.PrintBackground,
		PreferCSSPageSize: o.PreferCSSPageSize,
	}
}
