package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"duprank/pkg/report"
)

var builtBinaryPath string

type cmdResult struct {
	stdout string
	stderr string
	err    error
}

func (r cmdResult) combinedOutput() string {
	return r.stdout + r.stderr
}

func resolveRepoRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve repo root")
	}

	root := filepath.Dir(filepath.Dir(filename))
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repo root: %w", err)
	}

	return absRoot, nil
}

func TestMain(m *testing.M) {
	repoRoot, err := resolveRepoRoot()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialize e2e tests: %v\n", err)
		os.Exit(1)
	}

	binDir, err := os.MkdirTemp("", "duprank-e2e-bin-*")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to create temp directory for binary: %v\n", err)
		os.Exit(1)
	}

	binPath := filepath.Join(binDir, "duprank")
	if runtime.GOOS == "windows" {
		binPath += ".exe"
	}

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd")
	cmd.Dir = repoRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to build duprank: %v\n%s\n", err, string(output))
		_ = os.RemoveAll(binDir)
		os.Exit(1)
	}

	builtBinaryPath = binPath

	exitCode := m.Run()
	_ = os.RemoveAll(binDir)
	os.Exit(exitCode)
}

func binaryPath(t *testing.T) string {
	t.Helper()

	if builtBinaryPath == "" {
		t.Fatal("binary path not initialized")
	}

	return builtBinaryPath
}

func runBinary(t *testing.T, binPath string, args ...string) cmdResult {
	t.Helper()

	timeout := 30 * time.Second
	if deadline, ok := t.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binPath, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		if stderr.Len() > 0 && !strings.HasSuffix(stderr.String(), "\n") {
			stderr.WriteString("\n")
		}
		stderr.WriteString("command timed out after " + timeout.String())
	}

	return cmdResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
		err:    err,
	}
}

func writeFile(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("failed to set file times: %v", err)
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	modTime := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	for rel, content := range files {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), content, modTime)
	}
}

func assertCommandFailed(t *testing.T, result cmdResult, keywords ...string) {
	t.Helper()

	if result.err == nil {
		t.Fatalf("expected command to fail\nstdout:\n%s\nstderr:\n%s", result.stdout, result.stderr)
	}

	combined := strings.ToLower(result.combinedOutput())
	for _, keyword := range keywords {
		if !strings.Contains(combined, strings.ToLower(keyword)) {
			t.Fatalf("expected output to contain %q\n%s", keyword, result.combinedOutput())
		}
	}
}

func assertCommandSucceeded(t *testing.T, result cmdResult) {
	t.Helper()

	if result.err != nil {
		t.Fatalf("command failed: %v\nstdout:\n%s\nstderr:\n%s", result.err, result.stdout, result.stderr)
	}
}

func exitCode(t *testing.T, result cmdResult) int {
	t.Helper()

	if result.err == nil {
		return 0
	}
	exitErr, ok := result.err.(*exec.ExitError)
	if !ok {
		t.Fatalf("unexpected error running binary: %v", result.err)
	}
	return exitErr.ExitCode()
}

func findJSON(t *testing.T, root string, args ...string) *report.Report {
	t.Helper()

	args = append(append([]string{"find", "--format", "json"}, args...), root)
	result := runBinary(t, binaryPath(t), args...)
	assertCommandSucceeded(t, result)

	var rep report.Report
	if err := json.Unmarshal([]byte(result.stdout), &rep); err != nil {
		t.Fatalf("failed to parse report: %v\n%s", err, result.stdout)
	}
	return &rep
}

// flattened lists group members relative to root in output order.
func flattened(t *testing.T, root string, rep *report.Report) []string {
	t.Helper()

	var out []string
	add := func(path string) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			t.Fatalf("failed to relativize %s: %v", path, err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	for _, g := range rep.Groups {
		add(g.Original.Path)
		for _, d := range g.Duplicates {
			add(d.Path)
		}
	}
	return out
}

func assertOrder(t *testing.T, want, got []string) {
	t.Helper()

	if strings.Join(want, " ") != strings.Join(got, " ") {
		t.Fatalf("unexpected order\nwant: %v\ngot:  %v", want, got)
	}
}

func TestE2E_AlphabeticalPair(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ax": "x", "ay": "x"})

	rep := findJSON(t, root, "-S", "a")

	assertOrder(t, []string{"ax", "ay"}, flattened(t, root, rep))
	if rep.Summary.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", rep.Summary.Duplicates)
	}
}

func TestE2E_SizeThenNameDescending(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ax": "x", "ay": "x", "bx": "yyy", "by": "yyy"})

	rep := findJSON(t, root, "-S", "SA", "--sort-by", "S")

	assertOrder(t, []string{"by", "bx", "ay", "ax"}, flattened(t, root, rep))
}

func TestE2E_MergedDirectoriesBySize(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"ax":  "x",
		"ay":  "x",
		"b/x": "yyy",
		"b/y": "yyy",
		"c/x": "yyy",
		"c/y": "yyy",
		"dx":  strings.Repeat("z", 32),
		"dy":  strings.Repeat("z", 32),
	})

	rep := findJSON(t, root, "-S", "a", "--sort-by", "s", "-D")

	assertOrder(t, []string{"ax", "ay", "b/x", "b/y", "b", "c", "dx", "dy"}, flattened(t, root, rep))
	if rep.Summary.DirectoryGroups != 1 {
		t.Fatalf("expected 1 directory group, got %d", rep.Summary.DirectoryGroups)
	}
	if len(rep.Subsumed) != 1 || filepath.Base(rep.Subsumed[0]) != "c" {
		t.Fatalf("expected c to be subsumed, got %v", rep.Subsumed)
	}
}

func TestE2E_ResultsAreReproducible(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"one/a.txt": "same",
		"two/a.txt": "same",
		"three.txt": "same",
	})

	first := flattened(t, root, findJSON(t, root, "-S", "m"))
	for i := 0; i < 3; i++ {
		assertOrder(t, first, flattened(t, root, findJSON(t, root, "-S", "m")))
	}
}

func TestE2E_UnknownLetterFailsWithoutOutput(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ax": "x", "ay": "x"})

	result := runBinary(t, binaryPath(t), "find", "-S", "aq", root)

	assertCommandFailed(t, result, "unknown criterion", "q")
	if code := exitCode(t, result); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if result.stdout != "" {
		t.Fatalf("expected no report output, got:\n%s", result.stdout)
	}
}

func TestE2E_ReportFileRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ax": "x", "ay": "x"})
	outPath := filepath.Join(t.TempDir(), "dupes.yaml")

	result := runBinary(t, binaryPath(t), "find", "-o", outPath, root)
	assertCommandSucceeded(t, result)
	if !strings.Contains(result.stdout, "Report saved:") {
		t.Fatalf("expected summary output, got:\n%s", result.stdout)
	}

	rep, err := report.Load(outPath)
	if err != nil {
		t.Fatalf("failed to load report: %v", err)
	}
	if len(rep.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(rep.Groups))
	}
}

func TestE2E_CriteriaCommand(t *testing.T) {
	result := runBinary(t, binaryPath(t), "criteria")
	assertCommandSucceeded(t, result)

	for _, letter := range []string{"a/A", "m/M", "s/S"} {
		if !strings.Contains(result.stdout, letter) {
			t.Fatalf("expected %q in output:\n%s", letter, result.stdout)
		}
	}
}
