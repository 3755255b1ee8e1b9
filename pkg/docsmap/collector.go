// Package docsmap implements the docs-map plugin: it collects the metadata of
// every visible documentation page read during a build pass and writes it as
// a JSON array once the pass is done.
package docsmap

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

// PluginName is the name the collector reports to hosts.
const PluginName = "docs-map"

// Collector accumulates PageInfo values for one build pass at a time.
// It implements types.Hooks.
type Collector struct {
	mu     sync.Mutex
	infos  []types.PageInfo // nil until the first page of a pass is collected
	logger *slog.Logger
}

var _ types.Hooks = (*Collector)(nil)

// New creates an empty Collector. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger.With("plugin", PluginName)}
}

// Name returns PluginName.
func (c *Collector) Name() string {
	return PluginName
}

// OnBeforeBuild discards everything collected so far.
func (c *Collector) OnBeforeBuild() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.infos = nil
}

// OnPageRead records rc.Page when rc is a visible documentation page. It
// always returns rc itself on success. A documentation context without a
// page returns types.ErrPageNotFound.
func (c *Collector) OnPageRead(rc *types.ReadContext) (*types.ReadContext, error) {
	if rc == nil || !rc.IsDoc {
		return rc, nil
	}
	if rc.Page == nil {
		return nil, types.ErrPageNotFound
	}
	if rc.Page.Hide {
		c.logger.Debug("skipping hidden page", "address", rc.Page.Address)
		return rc, nil
	}

	c.mu.Lock()
	c.infos = append(c.infos, rc.Page.Info())
	c.mu.Unlock()

	c.logger.Debug("collected page", "title", rc.Page.Title, "address", rc.Page.Address)
	return rc, nil
}

// OnAfterBuild writes the collected pages to
// <bc.PublicPath>/<bc.Config.DocsMap.OutputFile()>. It does nothing when no
// page was collected. The collected pages are left in place.
func (c *Collector) OnAfterBuild(ctx context.Context, bc types.BuildContext) error {
	c.mu.Lock()
	infos := c.infos
	c.mu.Unlock()

	if len(infos) == 0 {
		return nil
	}
	if bc.FS == nil {
		return types.ErrWriterMissing
	}

	path := OutputPath(bc)
	if err := bc.FS.WriteJSON(ctx, path, infos); err != nil {
		return &types.WriteError{Path: path, Err: err}
	}

	c.logger.Info("wrote docs map", "path", path, "pages", len(infos))
	return nil
}

// Infos returns a copy of the pages collected in the current pass, or nil
// when none were.
func (c *Collector) Infos() []types.PageInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.infos == nil {
		return nil
	}
	out := make([]types.PageInfo, len(c.infos))
	copy(out, c.infos)
	return out
}

// OutputPath returns the path OnAfterBuild writes to for bc.
func OutputPath(bc types.BuildContext) string {
	return filepath.Join(bc.PublicPath, bc.Config.DocsMap.OutputFile())
}
