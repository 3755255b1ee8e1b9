package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

func attachTemp(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.StoreConfig{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func sampleBuild(started time.Time, pages ...types.PageInfo) types.BuildRecord {
	return types.BuildRecord{
		Status:     types.BuildWritten,
		Output:     "/site/public/docs.json",
		PageCount:  len(pages) + 1,
		DocCount:   len(pages),
		StartedAt:  started,
		FinishedAt: started.Add(15 * time.Millisecond),
		Pages:      pages,
	}
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.StoreConfig{Backend: types.BackendSQLite, DataDir: tmpDir}
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()

	for _, name := range []string{dbFileName, buildsJSONL, buildPagesJSONL} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}

	if err := b.Attach(config); err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestBackend_AttachCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	attachTemp(t, dir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.StoreConfig{Backend: "postgres", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.StoreConfig{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "Detach must be idempotent")

	_, err := b.RecordBuild(sampleBuild(time.Now()))
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Builds(0)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Build("x")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Pages("x", "")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestRecordBuild_AssignsID(t *testing.T) {
	b := attachTemp(t, t.TempDir())

	id, err := b.RecordBuild(sampleBuild(time.Now()))
	require.NoError(t, err)
	assert.Len(t, id, 36)

	rec := sampleBuild(time.Now())
	rec.ID = "fixed-id"
	id, err = b.RecordBuild(rec)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	_, err = b.RecordBuild(rec)
	assert.Error(t, err, "duplicate IDs are rejected")
}

func TestBuild_RoundTrip(t *testing.T) {
	b := attachTemp(t, t.TempDir())

	started := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	rec := sampleBuild(started,
		types.PageInfo{Title: "Install", Address: "/install.html", Types: []string{"guide", "setup"}},
		types.PageInfo{Title: "FAQ", Address: "/faq.html", Types: nil},
	)
	rec.Error = ""
	id, err := b.RecordBuild(rec)
	require.NoError(t, err)

	got, err := b.Build(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, types.BuildWritten, got.Status)
	assert.Equal(t, rec.Output, got.Output)
	assert.Equal(t, 3, got.PageCount)
	assert.Equal(t, 2, got.DocCount)
	assert.True(t, started.Equal(got.StartedAt))
	assert.True(t, rec.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, []types.PageInfo{
		{Title: "Install", Address: "/install.html", Types: []string{"guide", "setup"}},
		{Title: "FAQ", Address: "/faq.html", Types: []string{}},
	}, got.Pages)
}

func TestBuild_NotFound(t *testing.T) {
	b := attachTemp(t, t.TempDir())

	_, err := b.Build("missing")
	assert.True(t, errors.Is(err, types.ErrBuildNotFound))
	_, err = b.Pages("missing", "")
	assert.True(t, errors.Is(err, types.ErrBuildNotFound))
}

func TestBuilds_NewestFirstWithLimit(t *testing.T) {
	b := attachTemp(t, t.TempDir())

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 4; i++ {
		// Sub-second offsets exercise timestamp ordering.
		id, err := b.RecordBuild(sampleBuild(base.Add(time.Duration(i) * 100 * time.Millisecond)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := b.Builds(0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[3], all[0].ID)
	assert.Equal(t, ids[0], all[3].ID)
	assert.Nil(t, all[0].Pages)

	two, err := b.Builds(2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, ids[3], two[0].ID)
	assert.Equal(t, ids[2], two[1].ID)
}

func TestBuilds_Empty(t *testing.T) {
	b := attachTemp(t, t.TempDir())
	got, err := b.Builds(10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPages_TypeFilter(t *testing.T) {
	b := attachTemp(t, t.TempDir())

	id, err := b.RecordBuild(sampleBuild(time.Now(),
		types.PageInfo{Title: "A", Address: "/a.html", Types: []string{"guide"}},
		types.PageInfo{Title: "B", Address: "/b.html", Types: []string{"api", "guide"}},
		types.PageInfo{Title: "C", Address: "/c.html", Types: []string{"api"}},
		types.PageInfo{Title: "D", Address: "/d.html", Types: []string{"guidelines"}},
	))
	require.NoError(t, err)

	guide, err := b.Pages(id, "guide")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.html", "/b.html"}, addresses(guide))

	api, err := b.Pages(id, "api")
	require.NoError(t, err)
	assert.Equal(t, []string{"/b.html", "/c.html"}, addresses(api))

	none, err := b.Pages(id, "nope")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := b.Pages(id, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestHistorySurvivesReattach(t *testing.T) {
	dir := t.TempDir()

	b := NewBackend()
	cfg := types.StoreConfig{Backend: types.BackendSQLite, DataDir: dir}
	require.NoError(t, b.Attach(cfg))

	failed := sampleBuild(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	failed.Status = types.BuildFailed
	failed.Error = "write /site/public/docs.json: disk full"
	failedID, err := b.RecordBuild(failed)
	require.NoError(t, err)

	okID, err := b.RecordBuild(sampleBuild(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		types.PageInfo{Title: "A", Address: "/a.html", Types: []string{"x"}}))
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b2 := attachTemp(t, dir)
	builds, err := b2.Builds(0)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, okID, builds[0].ID)
	assert.Equal(t, failedID, builds[1].ID)
	assert.Equal(t, types.BuildFailed, builds[1].Status)
	assert.Equal(t, failed.Error, builds[1].Error)

	pages, err := b2.Pages(okID, "x")
	require.NoError(t, err)
	assert.Equal(t, []types.PageInfo{{Title: "A", Address: "/a.html", Types: []string{"x"}}}, pages)
}

func addresses(pages []types.PageInfo) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Address
	}
	return out
}
