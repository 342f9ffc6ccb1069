package halyard

import (
	"fmt"
	"sort"

	"github.com/agilira/go-errors"
)

// Entry is a declarative group of configuration values registered under a
// path. Defaults are written into the registry at registration time but
// never overwrite values a loaded source already set, regardless of whether
// the source was loaded before or after registration.
type Entry struct {
	// Path is the dot-delimited path the entry claims. Registering two
	// entries at the same path is a conflict; supply a distinct path to
	// resolve it.
	Path string

	// Defaults maps attribute names to their default values. Values may
	// be *Reference.
	Defaults map[string]any

	// Declared lists attribute names the entry declares without a
	// default. Together with the Defaults keys they form the set that
	// must resolve to a concrete value.
	Declared []string

	// DeferCheck postpones the missing-value check; call
	// Registry.CheckAttributes to run the postponed checks in bulk.
	DeferCheck bool
}

// attributes returns every attribute name the entry declares, sorted.
func (e Entry) attributes() []string {
	names := make([]string, 0, len(e.Defaults)+len(e.Declared))
	seen := make(map[string]bool, len(e.Defaults)+len(e.Declared))
	for name := range e.Defaults {
		names = append(names, name)
		seen[name] = true
	}
	for _, name := range e.Declared {
		if !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	sort.Strings(names)
	return names
}

// Register claims the entry's path and writes its default values into the
// tree. Defaults only fill attributes not already present at the path, so a
// source loaded before registration still wins.
//
// Returns a PathConflict error if an entry is already registered at the
// path, and a NotAMapping error if the path resolves to a scalar. Unless
// DeferCheck is set, every declared attribute is then checked for a value;
// a missing one yields a MissingValue error.
func (r *Registry) Register(e Entry) error {
	if e.Path == "" {
		return errors.New(ErrCodeInvalidOperation, "entry path must not be empty")
	}
	if r.usedPaths[e.Path] {
		return errors.New(ErrCodePathConflict,
			fmt.Sprintf("an entry at %q already exists; register with a distinct path to override", e.Path)).
			WithContext("path", e.Path)
	}

	node, err := r.getNode(e.Path, true, true)
	if err != nil {
		return err
	}
	mapping, ok := node.(map[string]any)
	if !ok {
		return errors.New(ErrCodeNotAMapping,
			fmt.Sprintf("node at path %q is not a mapping", e.Path)).
			WithContext("path", e.Path)
	}

	defaults := make([]string, 0, len(e.Defaults))
	for name := range e.Defaults {
		defaults = append(defaults, name)
	}
	sort.Strings(defaults)

	for _, name := range defaults {
		if _, exists := mapping[name]; exists {
			continue
		}
		value := e.Defaults[name]
		mapping[name] = value
		if ref, isRef := value.(*Reference); isRef {
			r.pendingRefs = append(r.pendingRefs, ref)
		}
	}

	r.usedPaths[e.Path] = true

	if e.DeferCheck {
		r.pendingChecks = append(r.pendingChecks, e)
		return nil
	}
	return r.CheckUndefined(e.Path, e.attributes())
}

// CheckUndefined verifies that every named attribute resolves to a concrete
// value at path. The first attribute that does not yields a MissingValue
// error naming the attribute and its owning path.
func (r *Registry) CheckUndefined(path string, attributes []string) error {
	for _, name := range attributes {
		if _, err := r.GetAttribute(path, name); err != nil {
			return errors.Wrap(err, ErrCodeMissingValue,
				fmt.Sprintf("attribute %q at %q does not have a defined value", name, path)).
				WithContext("path", path).
				WithContext("attribute", name)
		}
	}
	return nil
}

// CheckAttributes runs the missing-value check for every entry registered
// with DeferCheck since the last call, in reverse-registration order.
// Stops at the first failure; entries not yet checked stay queued.
func (r *Registry) CheckAttributes() error {
	for len(r.pendingChecks) > 0 {
		e := r.pendingChecks[len(r.pendingChecks)-1]
		r.pendingChecks = r.pendingChecks[:len(r.pendingChecks)-1]
		if err := r.CheckUndefined(e.Path, e.attributes()); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes the entry's default values from the tree and frees its
// path. Attributes set by a loaded source persist. Cleanup is best-effort:
// a missing node or an unknown path is silently tolerated.
func (r *Registry) Unregister(path string) {
	r.UnloadDefaults(path)
	delete(r.usedPaths, path)
}

// Registered reports whether an entry currently claims the path.
func (r *Registry) Registered(path string) bool {
	return r.usedPaths[path]
}
