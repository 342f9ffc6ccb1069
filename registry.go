package halyard

import (
	"fmt"
	"sort"

	"github.com/agilira/go-errors"

	"github.com/halyard-go/halyard/internal/dotpath"
)

// Registry owns the configuration tree: a single structure holding both
// registered default values and overrides merged from loaded sources.
// Construct one per process (or per test) with NewRegistry.
//
// A Registry is not safe for concurrent use. The design assumes a single
// logical owner performing registration and loading sequentially; a caller
// adapting it to concurrent code must hold an exclusive lock across every
// mutating operation, because mid-merge tree states are not valid to observe.
type Registry struct {
	// tree maps path segments to nested mappings or scalar/list values.
	tree map[string]any

	// nodeCache memoizes GetNode results for mapping nodes. Nodes are
	// mutated in place and never structurally replaced, so cached maps
	// stay valid pointers into the live tree.
	nodeCache map[string]map[string]any

	// usedPaths records paths claimed by registered entries.
	usedPaths map[string]bool

	// overwritten maps fully-qualified attribute paths that a loaded
	// source set to the name of that source. Membership decides whether
	// UnloadDefaults purges an attribute.
	overwritten map[string]string

	// pendingRefs holds references produced by merges since the last
	// RunPendingCycleChecks call.
	pendingRefs []*Reference

	// pendingChecks holds entries registered with DeferCheck, drained by
	// CheckAttributes in reverse-registration order.
	pendingChecks []Entry
}

// NewRegistry creates an empty configuration registry.
func NewRegistry() *Registry {
	return &Registry{
		tree:        make(map[string]any),
		nodeCache:   make(map[string]map[string]any),
		usedPaths:   make(map[string]bool),
		overwritten: make(map[string]string),
	}
}

// GetNode retrieves the node at the dot-delimited path.
// If the stored node is a lazy reference it is resolved before being
// returned. Returns a NotAMapping error if a segment along the path resolves
// to a non-mapping value, and a NotFound error if a segment does not exist.
func (r *Registry) GetNode(path string) (any, error) {
	return r.getNode(path, false, true)
}

// getNode walks the tree by path. When create is true, missing segments are
// materialized as empty mappings. When follow is false, a reference stored at
// the final position is returned as-is rather than resolved.
func (r *Registry) getNode(path string, create, follow bool) (any, error) {
	if node, ok := r.nodeCache[path]; ok {
		return node, nil
	}

	var node any = r.tree

	for _, segment := range dotpath.Split(path) {
		child, err := r.childNode(node, segment, path, follow)
		if err == nil {
			node = child
			continue
		}
		if create && HasCode(err, ErrCodeNotFound) {
			parent := node.(map[string]any)
			fresh := make(map[string]any)
			parent[segment] = fresh
			node = fresh
			continue
		}
		return nil, err
	}

	// Only mapping nodes are worth caching; scalars are cheap to re-walk
	// and references must be re-resolved on every read.
	if m, ok := node.(map[string]any); ok {
		r.nodeCache[path] = m
	}

	return node, nil
}

// childNode retrieves one child of a node, resolving a stored reference when
// follow is true.
func (r *Registry) childNode(node any, name, path string, follow bool) (any, error) {
	mapping, ok := node.(map[string]any)
	if !ok {
		return nil, errors.New(ErrCodeNotAMapping,
			fmt.Sprintf("cannot retrieve %q: node %q is not a mapping", path, name)).
			WithContext("path", path)
	}

	child, ok := mapping[name]
	if !ok {
		return nil, errors.New(ErrCodeNotFound,
			fmt.Sprintf("cannot retrieve %q: %q does not exist", path, name)).
			WithContext("path", path)
	}

	if ref, ok := child.(*Reference); ok && follow {
		return ref.Resolve(r)
	}

	return child, nil
}

// GetAttribute returns the value of the named attribute under path.
// Lazy references are resolved transparently; the chain is followed until a
// concrete value or an error is reached.
func (r *Registry) GetAttribute(path, name string) (any, error) {
	return r.getAttribute(path, name, true)
}

func (r *Registry) getAttribute(path, name string, follow bool) (any, error) {
	parent, err := r.getNode(path, false, follow)
	if err != nil {
		return nil, err
	}
	return r.childNode(parent, name, dotpath.Join(path, name), follow)
}

// SetAttribute writes a single attribute programmatically and marks it as
// overwritten, as if it came from a loaded source. Writing through a lazy
// reference is unsupported: if the slot currently holds a Reference, an
// InvalidOperation error is returned.
func (r *Registry) SetAttribute(path, name string, value any) error {
	node, err := r.getNode(path, true, true)
	if err != nil {
		return err
	}

	mapping, ok := node.(map[string]any)
	if !ok {
		return errors.New(ErrCodeNotAMapping,
			fmt.Sprintf("node at path %q is not a mapping", path)).
			WithContext("path", path)
	}

	if _, isRef := mapping[name].(*Reference); isRef {
		return errors.New(ErrCodeInvalidOperation,
			fmt.Sprintf("cannot set %q at %q: writing through a reference is not supported", name, path)).
			WithContext("path", path).
			WithContext("attribute", name)
	}

	r.recordValue(mapping, name, value, dotpath.Join(path, name), "set")
	return nil
}

// UnloadDefaults removes every attribute at path that was not overwritten by
// a loaded source. It is a no-op when the node cannot be found or is not a
// mapping: teardown must never fail past partial states.
func (r *Registry) UnloadDefaults(path string) {
	node, err := r.getNode(path, false, false)
	if err != nil {
		return
	}

	mapping, ok := node.(map[string]any)
	if !ok {
		return
	}

	for attribute := range mapping {
		if _, kept := r.overwritten[dotpath.Join(path, attribute)]; !kept {
			delete(mapping, attribute)
		}
	}
}

// MergePatch merges a patch into the tree with the source name "patch".
// See MergePatchFrom.
func (r *Registry) MergePatch(patch Patch) error {
	return r.MergePatchFrom("patch", patch)
}

// MergePatchFrom merges a patch into the tree, recording source as the origin
// of every affected attribute. Attribute names containing dots are expanded
// into nested mappings, so a collapsed key and the equivalent nested block
// produce the same tree shape. Every affected leaf (and every mapping node a
// patch value creates or descends into) is marked as overwritten.
//
// Merging is not atomic: on error, pairs already processed stay applied.
// Paths and attributes are merged in sorted order, so the failure point is
// deterministic for a given patch.
//
// A NotAMapping error is returned when a patch would overwrite a path claimed
// by a registered entry with a scalar value.
func (r *Registry) MergePatchFrom(source string, patch Patch) error {
	paths := make([]string, 0, len(patch))
	for path := range patch {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		attrs := patch[path]

		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			// The path itself is a dotted key of the root mapping, so
			// path expansion and attribute merging share one walk.
			key := dotpath.Join(path, name)
			if err := r.mergeValue(r.tree, key, attrs[name], "", source); err != nil {
				return err
			}
		}
	}

	return nil
}

// mergeValue writes one key/value pair into dest, expanding dotted keys and
// nested mapping values, and marking affected paths as overwritten.
func (r *Registry) mergeValue(dest map[string]any, key string, value any, parentPath, source string) error {
	if head, rest, dotted := splitFirst(key); dotted {
		child, err := r.childMapping(dest, head, dotpath.Join(parentPath, head))
		if err != nil {
			return err
		}
		return r.mergeValue(child, rest, value, dotpath.Join(parentPath, head), source)
	}

	fullPath := dotpath.Join(parentPath, key)

	if nested, ok := mappingValue(value); ok {
		r.overwritten[fullPath] = source
		child, err := r.childMapping(dest, key, fullPath)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(nested))
		for name := range nested {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := r.mergeValue(child, name, nested[name], fullPath, source); err != nil {
				return err
			}
		}
		return nil
	}

	if r.usedPaths[fullPath] {
		return errors.New(ErrCodeNotAMapping,
			fmt.Sprintf("node at path %q must be a mapping", fullPath)).
			WithContext("path", fullPath)
	}

	r.recordValue(dest, key, value, fullPath, source)
	return nil
}

// childMapping returns dest[key] as a mapping, creating it when absent.
// A scalar occupant is a structural mismatch, never silently overwritten.
func (r *Registry) childMapping(dest map[string]any, key, fullPath string) (map[string]any, error) {
	if child, ok := dest[key].(map[string]any); ok {
		return child, nil
	}
	if _, exists := dest[key]; exists {
		return nil, errors.New(ErrCodeNotAMapping,
			fmt.Sprintf("node at path %q is not a mapping", fullPath)).
			WithContext("path", fullPath)
	}
	child := make(map[string]any)
	dest[key] = child
	return child, nil
}

// recordValue stores a leaf value, marks it overwritten, and queues any
// reference for the next cycle check pass.
func (r *Registry) recordValue(dest map[string]any, key string, value any, fullPath, source string) {
	r.overwritten[fullPath] = source
	dest[key] = value
	if ref, ok := value.(*Reference); ok {
		r.pendingRefs = append(r.pendingRefs, ref)
	}
}

// RunPendingCycleChecks validates every reference merged since the last call,
// whether or not it is ever read, so broken cycles surface at load time
// rather than at an arbitrary later read. Returns the first cycle found.
func (r *Registry) RunPendingCycleChecks() error {
	for len(r.pendingRefs) > 0 {
		ref := r.pendingRefs[len(r.pendingRefs)-1]
		r.pendingRefs = r.pendingRefs[:len(r.pendingRefs)-1]
		if err := ref.checkCycle(r); err != nil {
			return err
		}
	}
	return nil
}

// OverwrittenBy returns the name of the source that overwrote the
// fully-qualified attribute path, or "" if the value is a default.
func (r *Registry) OverwrittenBy(fullPath string) string {
	return r.overwritten[fullPath]
}

// splitFirst splits a key on its first dot.
func splitFirst(key string) (head, rest string, dotted bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:], true
		}
	}
	return key, "", false
}

// mappingValue normalizes mapping-shaped values to map[string]any.
// Patches assembled by hand may carry map[string]any directly; decoded YAML
// can surface map[any]any in nested positions.
func mappingValue(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		m := make(map[string]any, len(v))
		for key, val := range v {
			s, ok := key.(string)
			if !ok {
				return nil, false
			}
			m[s] = val
		}
		return m, true
	default:
		return nil, false
	}
}
