// Package html2pdf converts a local HTML file to a paginated A4 PDF.
//
// # Quick Start
//
//	req, err := html2pdf.NewConversionRequest("report.html", "")
//	if err != nil {
//	    log.Fatal(err) // html2pdf.ErrMissingInput, ErrDestinationNotWritable, ...
//	}
//
//	conv, err := html2pdf.NewConverter(html2pdf.WithOutput(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	outcome := conv.Convert(ctx, req)
//	fmt.Println(outcome.Summary())
//
// # Backends
//
// Two independent backends are tried in priority order:
//
//  1. StaticRenderer: WeasyPrint, single-pass CSS layout, scripts ignored
//  2. BrowserRenderer: headless Chromium via go-rod (or chromedp),
//     scripts executed, network-idle wait before printing
//
// Each backend is probed without side effects. A missing backend is
// provisioned (pip install, Chromium download) after a notice is printed,
// unless provisioning is disabled with WithProvisioning(false). A failure of
// one backend never prevents the next from being tried, and no backend is
// tried twice.
//
// # Print Profile
//
// BuildPrintProfile returns the print policy shared by all backends: A4,
// per-backend margins, a CJK-capable font chain ending in sans-serif, modal
// suppression, static rendering of interactive elements, and page-break
// rules. PrintProfile.Stylesheet translates it for a given backend.
//
// # Outcomes
//
// Convert never returns an error. The Outcome's Terminal is one of:
//
//   - TerminalSuccess: the PDF exists at Outcome.OutputPath
//   - TerminalManual: every backend failed; the source was opened in the
//     default application and manual print-to-PDF steps were printed
//   - TerminalFailure: even the default-application opener failed
//   - TerminalInvalidInput: the request was rejected before any backend ran
//
// The destination is written atomically: a backend renders to a temporary
// sibling file and renames it only after the output is verified as a PDF.
package html2pdf
