// Package site is a minimal static-site host. It reads the Markdown pages of
// a source tree and drives the lifecycle hooks of its plugins for each build
// pass.
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

// pageExtensions lists the source file extensions read as pages.
var pageExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// Build pass outcomes reported to a Recorder.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Recorder receives the outcome of every build pass.
type Recorder interface {
	ObserveBuild(status string, pages, docs int, elapsed time.Duration)
}

// Result summarizes one build pass.
type Result struct {
	ID        string
	Pages     int // pages read
	Docs      int // pages flagged as documentation
	Hidden    int // documentation pages with hide set
	StartedAt time.Time
	Duration  time.Duration
}

// Builder runs build passes over a source tree.
type Builder struct {
	cfg      types.Config
	fs       types.JSONWriter
	hooks    []types.Hooks
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithHooks registers plugins. Hooks run in registration order.
func WithHooks(hooks ...types.Hooks) Option {
	return func(b *Builder) {
		b.hooks = append(b.hooks, hooks...)
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRecorder reports every build pass to r.
func WithRecorder(r Recorder) Option {
	return func(b *Builder) {
		b.recorder = r
	}
}

// New creates a Builder for cfg. w is handed to plugins in OnAfterBuild.
func New(cfg types.Config, w types.JSONWriter, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		fs:     w,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs one build pass: OnBeforeBuild on every hook, OnPageRead for
// every page in lexical path order, then OnAfterBuild on every hook.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	res := Result{
		ID:        newBuildID(),
		StartedAt: b.now(),
	}
	logger := b.logger.With("build", res.ID)

	err := b.build(ctx, logger, &res)
	res.Duration = b.now().Sub(res.StartedAt)

	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	if b.recorder != nil {
		b.recorder.ObserveBuild(status, res.Pages, res.Docs, res.Duration)
	}
	if err != nil {
		logger.Error("build failed", "error", err)
		return res, err
	}

	logger.Info("build finished",
		"pages", res.Pages,
		"docs", res.Docs,
		"hidden", res.Hidden,
		"duration", res.Duration)
	return res, nil
}

func (b *Builder) build(ctx context.Context, logger *slog.Logger, res *Result) error {
	if err := b.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, h := range b.hooks {
		h.OnBeforeBuild()
	}

	files, err := b.pageFiles()
	if err != nil {
		return err
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := b.readPage(rel)
		if err != nil {
			return err
		}

		rc := &types.ReadContext{
			IsDoc: b.isDoc(rel),
			Page:  page,
		}
		res.Pages++
		if rc.IsDoc {
			res.Docs++
			if page.Hide {
				res.Hidden++
			}
		}
		logger.Debug("read page", "source", rel, "address", page.Address, "doc", rc.IsDoc)

		for _, h := range b.hooks {
			next, err := h.OnPageRead(rc)
			if err != nil {
				return fmt.Errorf("%s: page %s: %w", h.Name(), rel, err)
			}
			if next != nil {
				rc = next
			}
		}
	}

	bc := types.BuildContext{
		PublicPath: b.cfg.PublicPath,
		Config:     b.cfg,
		FS:         b.fs,
	}
	for _, h := range b.hooks {
		if err := h.OnAfterBuild(ctx, bc); err != nil {
			return fmt.Errorf("%s: after build: %w", h.Name(), err)
		}
	}
	return nil
}

// pageFiles returns the slash-separated paths, relative to the source
// directory, of every page file. Hidden directories and the public directory
// are skipped.
func (b *Builder) pageFiles() ([]string, error) {
	root := b.cfg.SourceDir
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source dir %s is not a directory", root)
	}

	publicAbs, _ := filepath.Abs(b.cfg.PublicPath)

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if abs, err := filepath.Abs(path); err == nil && abs == publicAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if !pageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// readPage loads the page at rel, relative to the source directory.
func (b *Builder) readPage(rel string) (*types.Page, error) {
	content, err := os.ReadFile(filepath.Join(b.cfg.SourceDir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}

	fm, _, err := parseFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}

	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	title := fm.Title
	if title == "" {
		title = filepath.Base(stem)
	}
	pageTypes := []string(fm.Types)
	if pageTypes == nil {
		pageTypes = []string{}
	}

	return &types.Page{
		Title:   title,
		Address: "/" + stem + ".html",
		Types:   pageTypes,
		Hide:    fm.Hide,
		Source:  rel,
	}, nil
}

// isDoc reports whether rel matches a docs pattern and no exclude pattern.
func (b *Builder) isDoc(rel string) bool {
	return matchAny(b.cfg.DocsPatterns, rel) && !matchAny(b.cfg.ExcludePatterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		// Patterns were validated with the config.
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// newBuildID generates a UUID v7 for a build pass.
func newBuildID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// IsConfigError reports whether err comes from an invalid configuration or a
// host contract violation.
func IsConfigError(err error) bool {
	return errors.Is(err, types.ErrConfiguration) ||
		errors.Is(err, types.ErrSourceDirEmpty) ||
		errors.Is(err, types.ErrPublicPathEmpty) ||
		errors.Is(err, types.ErrOutputInvalid) ||
		errors.Is(err, types.ErrPatternInvalid)
}
