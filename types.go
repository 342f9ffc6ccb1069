package halyard

import (
	"context"
)

// Patch is the output of parsing a configuration source: a mapping from
// dot-delimited path to the attributes to set at that path. Attribute names
// may themselves contain dots; MergePatch expands them into nested mappings,
// so {"a": {"b.c": 1}} and {"a.b": {"c": 1}} produce the same tree.
type Patch map[string]map[string]any

// Source provides configuration overrides from a backend (files, env vars).
// Keys must be normalized to dot-separated paths (e.g., "database.host").
type Source interface {
	// Load returns the source's overrides as a Patch. Missing optional
	// sources should return an empty Patch.
	Load(ctx context.Context) (Patch, error)

	// Name returns a human-readable identifier used for provenance
	// (e.g., "file:config.yaml").
	Name() string
}

// Set records an attribute in the patch, creating the path bucket on first
// use. Later calls for the same path and attribute overwrite earlier ones.
func (p Patch) Set(path, attribute string, value any) {
	bucket, ok := p[path]
	if !ok {
		bucket = make(map[string]any)
		p[path] = bucket
	}
	bucket[attribute] = value
}
