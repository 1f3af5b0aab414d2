package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2pdf [command] [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert an HTML file to PDF (default)")
	fmt.Fprintln(w, "  doctor     Check which backends are ready")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'html2pdf help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2pdf [convert] <input.html> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert an HTML file to an A4 PDF. Backends are tried in order;")
	fmt.Fprintln(w, "missing ones are installed first unless provisioning is disabled.")
	fmt.Fprintln(w, "When every backend fails, the file is opened in the default")
	fmt.Fprintln(w, "application with instructions to print it to PDF by hand.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    HTML file to convert")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>          Output PDF (default: input with .pdf)")
	fmt.Fprintln(w, "  -c, --config <name>          Config file name or path")
	fmt.Fprintln(w, "      --extra-css <path>       Stylesheet appended after the print rules")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Backends:")
	fmt.Fprintln(w, "  -b, --backends <list>        Priority order (default: static,browser)")
	fmt.Fprintln(w, "      --engine <s>             Browser engine: rod, chromedp")
	fmt.Fprintln(w, "      --no-provision           Never install missing backends")
	fmt.Fprintln(w, "  -t, --timeout <d>            Per-backend render timeout (e.g., 30s)")
	fmt.Fprintln(w, "      --quiescence-timeout <d> Browser network-idle wait limit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Inspection:")
	fmt.Fprintln(w, "      --dry-run                Print the backend plan without rendering")
	fmt.Fprintln(w, "      --print-css <backend>    Print the print stylesheet for a backend")
	fmt.Fprintln(w, "      --show-config            Print the effective configuration")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet                  Only show the final result")
	fmt.Fprintln(w, "  -v, --verbose                Show debug output")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  HTML2PDF_CONFIG, HTML2PDF_BACKENDS, HTML2PDF_NO_PROVISION,")
	fmt.Fprintln(w, "  HTML2PDF_BROWSER_ENGINE, HTML2PDF_TIMEOUT, ROD_BROWSER_BIN, ROD_NO_SANDBOX")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2pdf doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Probe every configured backend without installing anything.")
	fmt.Fprintln(w, "Exits 0 when at least one backend is ready.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>   Config file name or path")
	fmt.Fprintln(w, "      --json            Machine-readable output")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	if !isCommand(args[0]) {
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: html2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: html2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	}
}
