// Package loader extracts decisions from source-specific publication formats.
package loader

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/okfde/froide-legalaction/internal/model"
)

// Item is one extracted decision plus its source context. When extraction of
// a single entry fails, Err is set and the other fields identify the source;
// the import pipeline rejects the item without aborting the batch.
type Item struct {
	Decision model.Decision

	// CourtLookup is the name used to resolve the decision's court against
	// the court directory. It may differ from the free-text court name the
	// source displays.
	CourtLookup string

	// Tags is the comma-separated tag string from the source, split and
	// deduplicated by the pipeline.
	Tags string

	// PDFPath points at a local copy of the decision document. PDFURL is
	// fetched when no local copy exists.
	PDFPath string
	PDFURL  string

	// Source identifies the file or URL the item came from, for logging.
	Source string

	Err error
}

// Loader extracts decisions from one source format.
type Loader interface {
	// Name identifies the loader on the command line.
	Name() string

	// Jurisdiction narrows court directory lookups for this source. Empty
	// means no restriction.
	Jurisdiction() string

	// Load extracts all decisions from the given path.
	Load(ctx context.Context, path string) ([]Item, error)
}

// Registry maps loader names to their implementations.
type Registry struct {
	loaders map[string]Loader
	order   []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with all loaders.
func NewRegistry() *Registry {
	r := &Registry{
		loaders: make(map[string]Loader),
	}
	r.Register(&Berlin{})
	r.Register(&Brandenburg{})
	return r
}

// Register adds a loader to the registry.
func (r *Registry) Register(l Loader) {
	name := l.Name()
	r.loaders[name] = l
	r.order = append(r.order, name)
}

// Get returns a loader by name.
func (r *Registry) Get(name string) (Loader, error) {
	l, ok := r.loaders[name]
	if !ok {
		return nil, eris.Errorf("loader: unknown loader %q", name)
	}
	return l, nil
}

// AllNames returns all registered loader names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
