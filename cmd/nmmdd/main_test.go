package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nmmdd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunCheckValidConfig(t *testing.T) {
	path := writeTestConfig(t, "service:\n  name: lab-daemon\n")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runCheck([]string{"-config", path})
	})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr)
	}
	if !strings.Contains(stdout, "Config OK") {
		t.Fatalf("expected Config OK, got %q", stdout)
	}
	if !strings.Contains(stdout, "service=lab-daemon") {
		t.Fatalf("expected service name in output, got %q", stdout)
	}
}

func TestRunCheckInvalidConfig(t *testing.T) {
	path := writeTestConfig(t, "server:\n  port: -4\n")

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runCheck([]string{"-config", path})
	})
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "Config invalid") {
		t.Fatalf("expected invalid message, got %q", stderr)
	}
}

func TestRunLockThenCheckDetectsTamper(t *testing.T) {
	path := writeTestConfig(t, "service:\n  name: lab-daemon\n")

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runLock([]string{"-config", path})
	})
	if code != 0 {
		t.Fatalf("lock failed: %d (stderr: %s)", code, stderr)
	}
	if !strings.Contains(stdout, "Config locked") {
		t.Fatalf("expected lock confirmation, got %q", stdout)
	}

	if err := os.WriteFile(path, []byte("service:\n  name: tampered\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	code, _, stderr = captureOutputWithExitCode(t, func() int {
		return runCheck([]string{"-config", path})
	})
	if code != 1 {
		t.Fatalf("expected tamper detection, got exit %d", code)
	}
	if !strings.Contains(stderr, "Integrity check failed") {
		t.Fatalf("expected integrity failure, got %q", stderr)
	}
}
