package halyard

import (
	"fmt"

	"github.com/agilira/go-errors"

	"github.com/halyard-go/halyard/internal/dotpath"
)

// Reference is a lazy configuration value that, when read, looks up another
// path (and optionally a final attribute) in a Registry. In configuration
// text it is written as "!REF some.path.attribute".
//
// A target with at least one dot splits into a parent path and an attribute
// name; a target with no dot refers to a whole node.
type Reference struct {
	target    string
	path      string
	attribute string
}

// NewReference creates a lazy reference to the given dot-delimited target.
func NewReference(target string) *Reference {
	path, attribute := dotpath.SplitLast(target)
	if path == "" {
		// No dot: the target names a whole node.
		return &Reference{target: target, path: target}
	}
	return &Reference{target: target, path: path, attribute: attribute}
}

// Target returns the dot-delimited target the reference was built from.
func (ref *Reference) Target() string {
	return ref.target
}

// String renders the reference in its source form.
func (ref *Reference) String() string {
	return "!REF " + ref.target
}

// Resolve looks the reference up in reg, following chains of intermediate
// references until a concrete value or an error is reached. Lookup failures
// (NotFound, NotAMapping) propagate to the caller; a chain that revisits a
// reference yields a CircularReference error even if cycle checks were
// deferred.
func (ref *Reference) Resolve(reg *Registry) (any, error) {
	visited := map[*Reference]bool{}
	current := ref

	for {
		if visited[current] {
			return nil, circularReferenceError(ref)
		}
		visited[current] = true

		value, err := current.lookup(reg)
		if err != nil {
			return nil, err
		}

		next, isRef := value.(*Reference)
		if !isRef {
			return value, nil
		}
		current = next
	}
}

// lookup fetches the immediate target value without following a reference
// stored there.
func (ref *Reference) lookup(reg *Registry) (any, error) {
	if ref.attribute != "" {
		return reg.getAttribute(ref.path, ref.attribute, false)
	}
	return reg.getNode(ref.path, false, false)
}

// checkCycle walks the chain of reference targets with a visited set.
// A lookup failure ends the walk without error: an unset target simply
// terminates the chain, and reporting it here would turn every reference to
// a not-yet-loaded value into a load failure.
func (ref *Reference) checkCycle(reg *Registry) error {
	visited := map[*Reference]bool{}
	current := ref

	for {
		if visited[current] {
			return circularReferenceError(ref)
		}
		visited[current] = true

		value, err := current.lookup(reg)
		if err != nil {
			if isLookupError(err) {
				return nil
			}
			return err
		}

		next, isRef := value.(*Reference)
		if !isRef {
			return nil
		}
		current = next
	}
}

func circularReferenceError(ref *Reference) error {
	return errors.New(ErrCodeCircularReference,
		fmt.Sprintf("circular reference starting at !REF %s", ref.target)).
		WithContext("target", ref.target)
}
