package html2pdf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// idlePollInterval is how often the request tracker is sampled.
const idlePollInterval = 50 * time.Millisecond

// chromedpEngine implements pdfEngine using chromedp.
type chromedpEngine struct {
	logger *zap.Logger
}

func (e *chromedpEngine) Name() string { return EngineChromedp }

// PrintPDF runs one allocator per call; cancelling it kills the browser.
func (e *chromedpEngine) PrintPDF(ctx context.Context, job pageJob) ([]byte, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(job.Bin),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
	)
	if job.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	tracker := newRequestTracker()
	chromedp.ListenTarget(tabCtx, tracker.handle)

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	if err := chromedp.Run(tabCtx, chromedp.Navigate(job.URL)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if job.CSS != "" {
		var injected bool
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(injectStyleScript(job.CSS), &injected)); err != nil {
			return nil, fmt.Errorf("%w: injecting print stylesheet: %v", ErrPageLoad, err)
		}
	}

	qctx, qcancel := context.WithTimeout(tabCtx, job.Quiescence)
	defer qcancel()
	if err := tracker.waitIdle(qctx, job.IdleWindow); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w within %s (%d request(s) in flight)", ErrQuiescenceTimeout, job.Quiescence, tracker.inflight())
	}
	e.logger.Debug("Network idle reached", zap.String("url", job.URL))

	var buf []byte
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPaperWidth(job.PDF.PaperWidth).
			WithPaperHeight(job.PDF.PaperHeight).
			WithMarginTop(job.PDF.MarginTop).
			WithMarginRight(job.PDF.MarginRight).
			WithMarginBottom(job.PDF.MarginBottom).
			WithMarginLeft(job.PDF.MarginLeft).
			WithPrintBackground(job.PDF.PrintBackground).
			WithPreferCSSPageSize(job.PDF.PreferCSSPageSize).
			Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return buf, nil
}

// injectStyleScript appends a <style> element holding css to the document head.
func injectStyleScript(css string) string {
	quoted, _ := json.Marshal(css) // marshaling a string cannot fail
	return fmt.Sprintf(`(function(css) {
  var s = document.createElement("style");
  s.textContent = css;
  (document.head || document.documentElement).appendChild(s);
  return true;
})(%s)`, quoted)
}

// requestTracker counts in-flight network requests from DevTools events.
type requestTracker struct {
	mu         sync.Mutex
	pending    map[network.RequestID]struct{}
	lastChange time.Time
}

func newRequestTracker() *requestTracker {
	return &requestTracker{
		pending:    make(map[network.RequestID]struct{}),
		lastChange: time.Now(),
	}
}

func (t *requestTracker) handle(ev interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.pending[e.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.pending, e.RequestID)
	case *network.EventLoadingFailed:
		delete(t.pending, e.RequestID)
	default:
		return
	}
	t.lastChange = time.Now()
}

func (t *requestTracker) inflight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// idleFor reports whether no request has been in flight for at least window.
func (t *requestTracker) idleFor(window time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending) == 0 && now.Sub(t.lastChange) >= window
}

// waitIdle blocks until the network has been idle for window or ctx ends.
func (t *requestTracker) waitIdle(ctx context.Context, window time.Duration) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		if t.idleFor(window, time.Now()) {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrQuiescenceTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
