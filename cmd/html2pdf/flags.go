package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// backendFlags holds backend selection and tuning flags.
type backendFlags struct {
	order             []string
	engine            string
	noProvision       bool
	timeout           string
	quiescenceTimeout string
}

// outputFlags holds inspection modes that stop before rendering.
type outputFlags struct {
	dryRun     bool
	printCSS   string
	showConfig bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common   commonFlags
	output   string
	extraCSS string
	backends backendFlags
	mode     outputFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show the final result")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug output")
}

// addBackendFlags adds backend flags to a FlagSet.
func addBackendFlags(fs *flag.FlagSet, f *backendFlags) {
	fs.StringSliceVarP(&f.order, "backends", "b", nil, "backend priority order (static,browser)")
	fs.StringVar(&f.engine, "engine", "", "browser engine: rod, chromedp")
	fs.BoolVar(&f.noProvision, "no-provision", false, "never install missing backends")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-backend render timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.quiescenceTimeout, "quiescence-timeout", "", "browser network-idle wait limit (e.g., 10s)")
}

// addOutputFlags adds inspection mode flags to a FlagSet.
func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.BoolVar(&f.dryRun, "dry-run", false, "print the backend plan without rendering")
	fs.StringVar(&f.printCSS, "print-css", "", "print the print stylesheet for a backend and exit")
	fs.BoolVar(&f.showConfig, "show-config", false, "print the effective configuration and exit")
}

// parseConvertFlags parses convert command flags and returns positional args.
// Usage is written to w when parsing fails.
func parseConvertFlags(args []string, w io.Writer) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(w)
	f := &convertFlags{}

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output PDF path (default: input with .pdf)")
	fs.StringVar(&f.extraCSS, "extra-css", "", "stylesheet appended after the print rules")

	// Flag groups
	addCommonFlags(fs, &f.common)
	addBackendFlags(fs, &f.backends)
	addOutputFlags(fs, &f.mode)

	fs.Usage = func() { printConvertUsage(w) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
