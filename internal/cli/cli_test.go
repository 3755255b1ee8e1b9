package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

// testSite is a temporary site with a config directory.
type testSite struct {
	root      string
	configDir string
	source    string
	public    string
}

func newTestSite(t *testing.T, extraConfig string) *testSite {
	t.Helper()
	root := t.TempDir()
	s := &testSite{
		root:      root,
		configDir: filepath.Join(root, ".docsmap"),
		source:    filepath.Join(root, "src"),
		public:    filepath.Join(root, "public"),
	}
	require.NoError(t, os.MkdirAll(s.configDir, 0o755))
	require.NoError(t, os.MkdirAll(s.source, 0o755))

	cfg := "source_dir: " + s.source + "\n" +
		"public_path: " + s.public + "\n" +
		"log_level: error\n" + extraConfig
	require.NoError(t, os.WriteFile(filepath.Join(s.configDir, "config.yaml"), []byte(cfg), 0o644))
	return s
}

func (s *testSite) page(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(s.source, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (s *testSite) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", s.configDir}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config-dir", dir, "init"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Initialized docsmap")
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "docs_map:")
	assert.Contains(t, string(data), "output: docs.json")
	assert.FileExists(t, filepath.Join(dir, "history", "builds.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "history", "build_pages.jsonl"))
}

func TestInitKeepsExistingConfig(t *testing.T) {
	s := newTestSite(t, "")
	before, err := os.ReadFile(filepath.Join(s.configDir, "config.yaml"))
	require.NoError(t, err)

	_, err = s.run(t, "init")
	require.NoError(t, err)

	after, err := os.ReadFile(filepath.Join(s.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestBuildWritesDocsMapAndHistory(t *testing.T) {
	s := newTestSite(t, "docs_patterns: [\"docs/**\"]\n")
	s.page(t, "index.md", "# Home\n")
	s.page(t, "docs/intro.md", "---\ntitle: Intro\ntypes: [guide]\n---\nbody\n")
	s.page(t, "docs/api.md", "---\ntitle: API\ntypes: [reference, api]\n---\n")
	s.page(t, "docs/draft.md", "---\ntitle: Draft\nhide: true\n---\n")

	out, err := s.run(t, "--json", "build")
	require.NoError(t, err)

	var rec types.BuildRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, types.BuildWritten, rec.Status)
	assert.Equal(t, 4, rec.PageCount)
	assert.Equal(t, 3, rec.DocCount)
	assert.Equal(t, filepath.Join(s.public, "docs.json"), rec.Output)

	data, err := os.ReadFile(filepath.Join(s.public, "docs.json"))
	require.NoError(t, err)
	var infos []types.PageInfo
	require.NoError(t, json.Unmarshal(data, &infos))
	assert.Equal(t, []types.PageInfo{
		{Title: "API", Address: "/docs/api.html", Types: []string{"reference", "api"}},
		{Title: "Intro", Address: "/docs/intro.html", Types: []string{"guide"}},
	}, infos)

	out, err = s.run(t, "--json", "history")
	require.NoError(t, err)
	var builds []types.BuildRecord
	require.NoError(t, json.Unmarshal([]byte(out), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, rec.ID, builds[0].ID)

	out, err = s.run(t, "--json", "history", "show", rec.ID, "--type", "guide")
	require.NoError(t, err)
	var detail struct {
		ID    string           `json:"build_id"`
		Pages []types.PageInfo `json:"pages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, rec.ID, detail.ID)
	assert.Equal(t, []types.PageInfo{
		{Title: "Intro", Address: "/docs/intro.html", Types: []string{"guide"}},
	}, detail.Pages)

	out, err = s.run(t, "history", "show", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:   written")
	assert.Contains(t, out, "/docs/api.html")
}

func TestBuildCustomOutput(t *testing.T) {
	s := newTestSite(t, "docs_map:\n  output: maps/la.json\n")
	s.page(t, "a.md", "---\ntitle: A\n---\n")

	out, err := s.run(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 entries to "+filepath.Join(s.public, "maps", "la.json"))
	assert.FileExists(t, filepath.Join(s.public, "maps", "la.json"))
	assert.NoFileExists(t, filepath.Join(s.public, "docs.json"))
}

func TestBuildWithoutDocsWritesNothing(t *testing.T) {
	s := newTestSite(t, "docs_patterns: [\"docs/**\"]\n")
	s.page(t, "index.md", "# Home\n")

	out, err := s.run(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing written")
	assert.NoDirExists(t, s.public)

	out, err = s.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, types.BuildSkipped)
}

func TestBuildDocsMapDisabled(t *testing.T) {
	s := newTestSite(t, "docs_map:\n  enable: false\n")
	s.page(t, "a.md", "---\ntitle: A\n---\n")

	_, err := s.run(t, "build")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(s.public, "docs.json"))
}

func TestBuildHistoryDisabled(t *testing.T) {
	s := newTestSite(t, "history:\n  enable: false\n")
	s.page(t, "a.md", "---\ntitle: A\n---\n")

	_, err := s.run(t, "build")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(s.configDir, "history"))
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		args     []string
		setup    func(t *testing.T, s *testSite)
		wantCode int
	}{
		{
			name:     "absolute output is a user error",
			config:   "docs_map:\n  output: /tmp/docs.json\n",
			wantCode: exitUserError,
		},
		{
			name:     "invalid pattern is a user error",
			config:   "docs_patterns: [\"[\"]\n",
			wantCode: exitUserError,
		},
		{
			name:     "invalid log level is a user error",
			args:     []string{"--log-level", "loud", "build"},
			wantCode: exitUserError,
		},
		{
			name: "missing source dir is a system error",
			setup: func(t *testing.T, s *testSite) {
				require.NoError(t, os.RemoveAll(s.source))
			},
			wantCode: exitSysError,
		},
		{
			name: "malformed front matter is a system error",
			setup: func(t *testing.T, s *testSite) {
				s.page(t, "bad.md", "---\ntitle: [\n---\n")
			},
			wantCode: exitSysError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSite(t, tt.config)
			args := tt.args
			if args == nil {
				args = []string{"build"}
			}
			if tt.setup != nil {
				tt.setup(t, s)
			}
			_, err := s.run(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, exitCode(err))
		})
	}
}

func TestFailedBuildIsRecorded(t *testing.T) {
	s := newTestSite(t, "")
	s.page(t, "bad.md", "---\ntitle: [\n---\n")

	_, err := s.run(t, "build")
	require.Error(t, err)

	out, err := s.run(t, "--json", "history")
	require.NoError(t, err)
	var builds []types.BuildRecord
	require.NoError(t, json.Unmarshal([]byte(out), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, types.BuildFailed, builds[0].Status)
	assert.Contains(t, builds[0].Error, "bad.md")
}

func TestHistory(t *testing.T) {
	s := newTestSite(t, "")

	out, err := s.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No builds recorded")

	out, err = s.run(t, "--json", "history")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	s.page(t, "a.md", "# A\n")
	for range 3 {
		_, err = s.run(t, "build")
		require.NoError(t, err)
	}

	out, err = s.run(t, "--json", "history", "--limit", "2")
	require.NoError(t, err)
	var builds []types.BuildRecord
	require.NoError(t, json.Unmarshal([]byte(out), &builds))
	assert.Len(t, builds, 2)

	_, err = s.run(t, "history", "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestHistoryShowUnknownBuild(t *testing.T) {
	s := newTestSite(t, "")
	_, err := s.run(t, "history", "show", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBuildNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "docsmap v")
}

func TestUnknownCommandIsUserError(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"bogus"})
	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}
