package main

// Notes:
// - Tests use a black-box approach through runDoctorCmd() with stub backends,
//   so results do not depend on WeasyPrint or Chrome being installed.
// - Container/CI detection reads environment variables; those tests use
//   t.Setenv() and cannot use t.Parallel().
// - isContainer, checkEnvironment and checkSystem are verified through the
//   JSON output rather than called directly.

import (
	"bytes"
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	html2pdf "github.com/alnah/go-html2pdf"
)

// runDoctorJSON runs the doctor with --json and decodes the result.
func runDoctorJSON(t *testing.T, env *testEnv, args ...string) (doctorResult, int) {
	t.Helper()

	code := runDoctorCmd(context.Background(), append([]string{"--json"}, args...), env.Environment)

	var result doctorResult
	if err := json.Unmarshal(env.stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput was: %s", err, env.stdout.String())
	}
	return result, code
}

// clearContainerSignals removes every container and CI marker the doctor reads.
func clearContainerSignals(t *testing.T) {
	t.Helper()
	clearHTML2PDFEnv(t)
	for _, name := range []string{"container", "KUBERNETES_SERVICE_HOST", "CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "ROD_NO_SANDBOX"} {
		t.Setenv(name, "")
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_Backends - Probe reporting and exit code
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_Backends(t *testing.T) {
	t.Run("one available backend is enough", func(t *testing.T) {
		clearContainerSignals(t)
		env := newTestEnv(t,
			&stubBackend{id: html2pdf.BackendStatic, avail: html2pdf.Missing},
			&stubBackend{id: html2pdf.BackendBrowser, avail: html2pdf.Available},
		)

		result, code := runDoctorJSON(t, env)

		if code != ExitSuccess {
			t.Errorf("exit code = %d, want %d", code, ExitSuccess)
		}
		if len(result.Backends) != 2 {
			t.Fatalf("backends = %+v, want 2 entries", result.Backends)
		}
		if result.Backends[0].ID != "static" || result.Backends[0].Available {
			t.Errorf("backends[0] = %+v, want missing static", result.Backends[0])
		}
		if result.Backends[1].ID != "browser" || !result.Backends[1].Available {
			t.Errorf("backends[1] = %+v, want available browser", result.Backends[1])
		}
		if result.Status == "errors" {
			t.Errorf("status = %q, errors: %v", result.Status, result.Errors)
		}
	})

	t.Run("no available backend is an error", func(t *testing.T) {
		clearContainerSignals(t)
		env := newTestEnv(t,
			&stubBackend{id: html2pdf.BackendStatic, avail: html2pdf.Missing},
			&stubBackend{id: html2pdf.BackendBrowser, avail: html2pdf.Missing},
		)

		result, code := runDoctorJSON(t, env)

		if code != ExitGeneral {
			t.Errorf("exit code = %d, want %d", code, ExitGeneral)
		}
		if result.Status != "errors" || len(result.Errors) == 0 {
			t.Errorf("status = %q, errors = %v", result.Status, result.Errors)
		}
	})

	t.Run("probes never render", func(t *testing.T) {
		clearContainerSignals(t)
		static := &stubBackend{id: html2pdf.BackendStatic, avail: html2pdf.Available}
		env := newTestEnv(t, static)

		runDoctorJSON(t, env)

		if static.renderCount() != 0 {
			t.Error("doctor must not render")
		}
	})

	t.Run("bad config is a usage error", func(t *testing.T) {
		clearContainerSignals(t)
		t.Setenv("HTML2PDF_BACKENDS", "pdfkit")
		env := newTestEnv(t)

		code := runDoctorCmd(context.Background(), nil, env.Environment)

		if code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_Environment - Platform, container and sandbox checks
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_Environment(t *testing.T) {
	t.Run("platform and temp dir", func(t *testing.T) {
		clearContainerSignals(t)
		env := newTestEnv(t, &stubBackend{id: html2pdf.BackendStatic, avail: html2pdf.Available})

		result, _ := runDoctorJSON(t, env)

		if result.Env.OS != runtime.GOOS || result.Env.Arch != runtime.GOARCH {
			t.Errorf("platform = %s/%s", result.Env.OS, result.Env.Arch)
		}
		if !result.System.TempWritable {
			t.Error("temp dir should be writable in tests")
		}
		if !result.Env.Provisioning {
			t.Error("provisioning should default to enabled")
		}
	})

	t.Run("container override warns about sandbox", func(t *testing.T) {
		clearContainerSignals(t)
		t.Setenv("HTML2PDF_CONTAINER", "1")
		env := newTestEnv(t, &stubBackend{id: html2pdf.BackendStatic, avail: html2pdf.Available})

		result, code := runDoctorJSON(t, env)

		if !result.Env.Container || result.Env.ContainerHint != "HTML2PDF_CONTAINER=1" {
			t.Errorf("container = %v (%q)", result.Env.Container, result.Env.ContainerHint)
		}
		if result.Status != "warnings" {
			t.Errorf("status = %q, want warnings", result.Status)
		}
		if code != ExitSuccess {
			t.Errorf("warnings should still exit %d, got %d", ExitSuccess, code)
		}
	})

	t.Run("sandbox disabled silences the warning", func(t *testing.T) {
		clearContainerSignals(t)
		t.Setenv("HTML2PDF_CONTAINER", "1")
		t.Setenv("ROD_NO_SANDBOX", "1")
		env := newTestEnv(t, &stubBackend{id: html2pdf.BackendStatic, avail: html2pdf.Available})

		result, _ := runDoctorJSON(t, env)

		for _, w := range result.Warnings {
			if strings.Contains(w, "ROD_NO_SANDBOX") {
				t.Errorf("unexpected sandbox warning: %q", w)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// TestPrintDoctorResult - Human-readable output
// ---------------------------------------------------------------------------

func TestPrintDoctorResult(t *testing.T) {
	t.Parallel()

	r := &doctorResult{
		Status: "warnings",
		Backends: []backendInfo{
			{ID: "static", Available: true, Runtime: "weasyprint 62.3"},
			{ID: "browser", Provisionable: true},
		},
		Env:      envInfo{OS: "linux", Arch: "amd64", Provisioning: true},
		System:   systemInfo{TempWritable: true},
		Warnings: []string{"browser backend missing; convert will install it"},
	}

	var buf bytes.Buffer
	printDoctorResult(&buf, r)
	out := buf.String()

	for _, want := range []string{
		"[OK] 1. static: weasyprint 62.3",
		"[WARN] 2. browser: missing (installable)",
		"Platform: linux/amd64",
		"Provisioning: enabled",
		"Status: Ready with warnings",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}
