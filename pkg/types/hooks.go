package types

import "context"

// JSONWriter is the file-write capability a host hands to plugins at the end
// of a build pass.
type JSONWriter interface {
	// WriteJSON serializes v as JSON and writes it to path.
	WriteJSON(ctx context.Context, path string, v any) error
}

// BuildContext carries what OnAfterBuild needs from the host.
type BuildContext struct {
	// PublicPath is the output directory of the site.
	PublicPath string
	Config     Config
	FS         JSONWriter
}

// Hooks is the lifecycle contract between a host and a plugin. For one build
// pass the host calls OnBeforeBuild, then OnPageRead for every page, then
// OnAfterBuild. The calls are never concurrent.
type Hooks interface {
	// Name identifies the plugin in logs.
	Name() string

	// OnBeforeBuild resets per-pass state.
	OnBeforeBuild()

	// OnPageRead observes one page. It returns the context it was given so
	// that hosts can chain plugins.
	OnPageRead(rc *ReadContext) (*ReadContext, error)

	// OnAfterBuild runs once the pages of the pass have been read.
	OnAfterBuild(ctx context.Context, bc BuildContext) error
}
