// Package integration provides CLI integration tests for docsmap.
package integration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// docsmapBin is the path to the built docsmap binary.
	docsmapBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv is an isolated site with its own config, data, source and public
// directories.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
	Source  string
	Public  string
}

// NewTestEnv creates a site whose config.yaml points at its own source and
// public directories. extra is appended to the generated config.
func NewTestEnv(t *testing.T, extra string) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build docsmap: %v", buildErr)
	}
	if docsmapBin == "" {
		t.Fatal("docsmap binary not built (docsmapBin is empty)")
	}

	tempDir := t.TempDir()
	e := &TestEnv{
		t:       t,
		TempDir: tempDir,
		Config:  filepath.Join(tempDir, "config"),
		DataDir: filepath.Join(tempDir, "data"),
		Source:  filepath.Join(tempDir, "src"),
		Public:  filepath.Join(tempDir, "public"),
	}
	for _, dir := range []string{e.Config, e.Source} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	content := "source_dir: " + e.Source + "\n" +
		"public_path: " + e.Public + "\n" + extra
	if err := os.WriteFile(filepath.Join(e.Config, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return e
}

// WritePage writes a source page at rel, relative to the source directory.
func (e *TestEnv) WritePage(rel, content string) {
	e.t.Helper()
	path := filepath.Join(e.Source, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		e.t.Fatalf("failed to create page dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.t.Fatalf("failed to write page %s: %v", rel, err)
	}
}

// CmdResult holds the result of a docsmap command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunDocsmap executes the docsmap CLI with the given arguments.
func (e *TestEnv) RunDocsmap(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.Config, "--data-dir", e.DataDir}, args...)
	cmd := exec.Command(docsmapBin, allArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run docsmap: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRunDocsmap executes the docsmap CLI and fails the test if it returns non-zero.
func (e *TestEnv) MustRunDocsmap(args ...string) CmdResult {
	e.t.Helper()
	result := e.RunDocsmap(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("docsmap %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// PageInfo is one entry of the docs map.
type PageInfo struct {
	Title   string   `json:"title"`
	Address string   `json:"address"`
	Types   []string `json:"types"`
}

// Build is a build record as printed by build and history.
type Build struct {
	BuildID   string     `json:"build_id"`
	Status    string     `json:"status"`
	Output    string     `json:"output"`
	PageCount int        `json:"page_count"`
	DocCount  int        `json:"doc_count"`
	Error     string     `json:"error"`
	Pages     []PageInfo `json:"pages"`
}

// ReadJSONFile reads and parses a JSON file.
func ReadJSONFile[T any](t *testing.T, path string) T {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return ParseJSON[T](t, string(data))
}

// ReadJSONLFile reads a JSONL file (one JSON object per line) and returns a slice.
func ReadJSONLFile[T any](t *testing.T, path string) []T {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open JSONL file %s: %v", path, err)
	}
	defer f.Close()

	var results []T
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			t.Fatalf("failed to parse JSONL line in %s: %v", path, err)
		}
		results = append(results, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed to scan JSONL file %s: %v", path, err)
	}
	return results
}
