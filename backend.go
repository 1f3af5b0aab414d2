package html2pdf

import "context"

// Backend is one independent HTML to PDF strategy.
//
// Probe must not install anything or touch the network, and reports Missing
// instead of failing. Render must leave DestinationPath untouched unless it
// returns a successful result.
type Backend interface {
	ID() BackendID
	Probe(ctx context.Context) Availability
	ProvisionSteps() []ProvisionStep
	Render(ctx context.Context, req ConversionRequest, profile PrintProfile) BackendResult
}

// Describer is implemented by backends that can name the runtime they resolved.
type Describer interface {
	Describe(ctx context.Context) string
}

// Compile-time interface checks
var (
	_ Backend       = (*StaticRenderer)(nil)
	_ Backend       = (*BrowserRenderer)(nil)
	_ Describer     = (*StaticRenderer)(nil)
	_ Describer     = (*BrowserRenderer)(nil)
	_ CommandRunner = (*ExecRunner)(nil)
	_ pdfEngine     = (*rodEngine)(nil)
	_ pdfEngine     = (*chromedpEngine)(nil)
)
