package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/hints"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string        `json:"status"` // "ready", "warnings", "errors"
	Backends []backendInfo `json:"backends"`
	Env      envInfo       `json:"environment"`
	System   systemInfo    `json:"system"`
	Warnings []string      `json:"warnings,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

// backendInfo holds one backend probe result.
type backendInfo struct {
	ID            string `json:"id"`
	Available     bool   `json:"available"`
	Runtime       string `json:"runtime,omitempty"`
	Provisionable bool   `json:"provisionable"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
	Provisioning  bool   `json:"provisioning"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = at least one backend ready, 1 = none, 2 = bad flags or config.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { printDoctorUsage(env.Stderr) }
	flags := &convertFlags{}
	jsonOutput := fs.Bool("json", false, "machine-readable output")
	fs.StringVarP(&flags.common.config, "config", "c", "", "config file name or path")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	cfg, err := resolveConfig(flags, loadEnvConfig())
	if err != nil {
		fmt.Fprintln(env.Stderr, "error:", err)
		return exitCodeFor(err)
	}
	backends, err := env.NewBackends(cfg, zap.NewNop())
	if err != nil {
		fmt.Fprintln(env.Stderr, "error:", err)
		return exitCodeFor(err)
	}

	result := runDoctor(ctx, backends, cfg.Provision.Enabled)

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, backends []html2pdf.Backend, provisioning bool) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:           runtime.GOOS,
			Arch:         runtime.GOARCH,
			NoSandbox:    os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin:   os.Getenv("ROD_BROWSER_BIN"),
			Provisioning: provisioning,
		},
	}

	checkBackends(ctx, result, backends)
	checkEnvironment(result)
	checkSystem(result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkBackends probes every backend. Probes never install anything.
func checkBackends(ctx context.Context, result *doctorResult, backends []html2pdf.Backend) {
	ready := 0
	for _, b := range backends {
		info := backendInfo{
			ID:            string(b.ID()),
			Available:     b.Probe(ctx) == html2pdf.Available,
			Provisionable: len(b.ProvisionSteps()) > 0,
		}
		if d, ok := b.(html2pdf.Describer); ok && info.Available {
			info.Runtime = d.Describe(ctx)
		}
		result.Backends = append(result.Backends, info)

		if info.Available {
			ready++
			continue
		}
		if info.Provisionable && result.Env.Provisioning {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s backend missing; convert will install it", info.ID))
		}
	}

	if ready == 0 {
		result.Errors = append(result.Errors,
			"No backend available; conversion would fall back to the manual procedure")
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	// Detect container (multi-signal approach)
	result.Env.Container, result.Env.ContainerHint = isContainer()
	result.Env.CI = hints.InCI()

	// Warn if container/CI without sandbox disabled
	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	// Explicit override (highest priority)
	if os.Getenv("HTML2PDF_CONTAINER") == "1" {
		return true, "HTML2PDF_CONTAINER=1"
	}
	// Docker
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory accepts files: both renderers stage output there.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	if err := fileutil.DirWritable(tmpDir); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "html2pdf doctor")
	fmt.Fprintln(w)

	// Backends section
	fmt.Fprintln(w, "Backends")
	for i, b := range r.Backends {
		switch {
		case b.Available && b.Runtime != "":
			fmt.Fprintf(w, "  [OK] %d. %s: %s\n", i+1, b.ID, b.Runtime)
		case b.Available:
			fmt.Fprintf(w, "  [OK] %d. %s\n", i+1, b.ID)
		case b.Provisionable && r.Env.Provisioning:
			fmt.Fprintf(w, "  [WARN] %d. %s: missing (installable)\n", i+1, b.ID)
		default:
			fmt.Fprintf(w, "  [ERROR] %d. %s: missing\n", i+1, b.ID)
		}
	}
	fmt.Fprintln(w)

	// Environment section
	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	if r.Env.Provisioning {
		fmt.Fprintln(w, "  [OK] Provisioning: enabled")
	} else {
		fmt.Fprintln(w, "  [OK] Provisioning: disabled")
	}
	fmt.Fprintln(w)

	// System section
	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	// Warnings
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	// Errors
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	// Final status
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
