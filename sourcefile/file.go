package sourcefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/halyard-go/halyard"
	"github.com/halyard-go/halyard/internal/dotpath"
)

// refMarker prefixes a string value that should become a lazy reference.
// In YAML it may also appear as a node tag (attr: !REF other.path.attr);
// JSON and TOML have no tags, so the marker string form covers them.
const refMarker = "!REF "

// Options configures file source behavior.
type Options struct {
	// Format: "hal", "yaml", "json", or "toml". Auto-detected from the
	// extension if empty.
	Format string

	// Required: if true, missing files cause an error. Default: false
	// (returns an empty patch).
	Required bool
}

type fileSource struct {
	path string
	opts Options
}

// New creates a file-based configuration source.
func New(path string, opts Options) halyard.Source {
	return &fileSource{
		path: path,
		opts: opts,
	}
}

// Load reads and parses the file, returning its contents as a patch of
// dotted paths.
func (f *fileSource) Load(ctx context.Context) (halyard.Patch, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			if f.opts.Required {
				return nil, fmt.Errorf("required config file not found: %s: %w", f.path, err)
			}
			return make(halyard.Patch), nil
		}
		return nil, fmt.Errorf("read config file %s: %w", f.path, err)
	}

	format := f.opts.Format
	if format == "" {
		format = inferFormat(f.path)
	}

	switch format {
	case "hal":
		return halyard.Parse(filepath.Base(f.path), data)
	case "yaml", "yml":
		return parseYAML(f.path, data)
	case "json":
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse JSON file %s: %w", f.path, err)
		}
		return restructure(raw), nil
	case "toml":
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse TOML file %s: %w", f.path, err)
		}
		return restructure(raw), nil
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: hal, yaml, json, toml)", format)
	}
}

// Name returns a human-readable identifier for this source.
func (f *fileSource) Name() string {
	return "file:" + filepath.Base(f.path)
}

// parseYAML decodes through yaml.Node so !REF tags survive as references
// instead of failing the generic decode.
func parseYAML(path string, data []byte) (halyard.Patch, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML file %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return make(halyard.Patch), nil
	}

	value, err := yamlValue(doc.Content[0])
	if err != nil {
		return nil, fmt.Errorf("parse YAML file %s: %w", path, err)
	}

	raw, ok := value.(map[string]any)
	if !ok {
		// A non-mapping root configures nothing; loading it is still
		// supported.
		return make(halyard.Patch), nil
	}
	return restructure(raw), nil
}

// yamlValue converts a decoded YAML node tree to plain values, turning !REF
// scalars into lazy references.
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			value, err := yamlValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = value
		}
		return m, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			value, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!REF" {
			return halyard.NewReference(strings.TrimSpace(n.Value)), nil
		}
		var value any
		if err := n.Decode(&value); err != nil {
			return nil, err
		}
		return value, nil
	default:
		return nil, fmt.Errorf("unsupported YAML node kind %d at line %d", n.Kind, n.Line)
	}
}

// restructure folds a nested document into path → {attribute: value} form.
// Leaf values sit in the bucket of their parent's dotted path; string values
// carrying the !REF marker become lazy references.
func restructure(raw map[string]any) halyard.Patch {
	patch := make(halyard.Patch)
	fold("", raw, patch)
	return patch
}

func fold(prefix string, node map[string]any, patch halyard.Patch) {
	for key, value := range node {
		switch v := value.(type) {
		case map[string]any:
			fold(dotpath.Join(prefix, key), v, patch)
		case string:
			if strings.HasPrefix(v, refMarker) {
				patch.Set(prefix, key, halyard.NewReference(strings.TrimSpace(v[len(refMarker):])))
				continue
			}
			patch.Set(prefix, key, v)
		default:
			patch.Set(prefix, key, value)
		}
	}
}

func inferFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".hal":
		return "hal"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}
