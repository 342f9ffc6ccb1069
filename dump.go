package halyard

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// DumpOption configures dump behavior using the functional options pattern.
type DumpOption func(*dumpConfig)

type dumpConfig struct {
	withSources bool   // Include source attribution for each attribute
	asJSON      bool   // Output as JSON instead of text format
	indent      string // Indentation for JSON output (default: "  ")
}

// WithSources includes source attribution for each attribute in the output.
// Attributes set by a loaded source show its name; defaults show "default".
func WithSources() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.withSources = true
	}
}

// AsJSON outputs the configuration as JSON instead of text format.
func AsJSON() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.asJSON = true
	}
}

// WithIndent sets the indentation for JSON output.
// Default is two spaces ("  ").
func WithIndent(indent string) DumpOption {
	return func(cfg *dumpConfig) {
		cfg.indent = indent
	}
}

// Dump writes a human-readable view of the effective configuration: every
// attribute flattened to its dotted path, sorted, one per line. Lazy
// references are rendered in their "!REF target" source form, unresolved.
func (r *Registry) Dump(w io.Writer, opts ...DumpOption) error {
	cfg := dumpConfig{indent: "  "}
	for _, opt := range opts {
		opt(&cfg)
	}

	flat := make(map[string]any)
	flattenTree("", r.tree, flat)

	if cfg.asJSON {
		return dumpAsJSON(w, flat, cfg)
	}
	return r.dumpAsText(w, flat, cfg)
}

// flattenTree folds nested mappings into dotted keys, mirroring the shape a
// collapsed configuration file would use.
func flattenTree(prefix string, node map[string]any, out map[string]any) {
	for key, value := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if child, ok := value.(map[string]any); ok {
			flattenTree(path, child, out)
			continue
		}
		out[path] = value
	}
}

func (r *Registry) dumpAsText(w io.Writer, flat map[string]any, cfg dumpConfig) error {
	for _, key := range sortedKeys(flat) {
		line := fmt.Sprintf("%s: %s", key, formatDumpValue(flat[key]))
		if cfg.withSources {
			source := r.overwritten[key]
			if source == "" {
				source = "default"
			}
			line += fmt.Sprintf(" (source: %s)", source)
		}
		line += "\n"

		if _, err := w.Write([]byte(line)); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}
	return nil
}

func dumpAsJSON(w io.Writer, flat map[string]any, cfg dumpConfig) error {
	// References are not JSON-marshalable; render their source form.
	out := make(map[string]any, len(flat))
	for key, value := range flat {
		if ref, ok := value.(*Reference); ok {
			out[key] = ref.String()
			continue
		}
		out[key] = value
	}

	var data []byte
	var err error
	if cfg.indent != "" {
		data, err = json.MarshalIndent(out, "", cfg.indent)
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

func formatDumpValue(value any) string {
	switch v := value.(type) {
	case *Reference:
		return v.String()
	case string:
		return fmt.Sprintf("%q", v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = formatDumpValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
