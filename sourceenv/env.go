package sourceenv

import (
	"context"
	"os"
	"strings"

	"github.com/halyard-go/halyard"
	"github.com/halyard-go/halyard/internal/dotpath"
)

// Options configures environment variable source behavior.
type Options struct {
	// Prefix filters vars starting with prefix (stripped before
	// normalization). Empty = load all vars.
	// Prefix matching behavior is controlled by CaseSensitive.
	Prefix string

	// CaseSensitive controls prefix matching (default: false).
	// When false, prefix matching is case-insensitive (APP_ matches
	// app_, App_, etc.). When true, prefix must match exactly.
	// Keys are always normalized to lowercase after prefix stripping.
	CaseSensitive bool
}

type envSource struct {
	opts Options
}

// New creates an environment variable source. Values stay raw strings; the
// format has no way to spell types, and a string default at the same slot is
// what an override will usually replace.
func New(opts Options) halyard.Source {
	return &envSource{opts: opts}
}

// Load scans environment variables, filters by prefix, and normalizes keys
// into path/attribute pairs. APP_SERVER__PORT=9090 (prefix "APP_") becomes
// path "server", attribute "port".
func (e *envSource) Load(ctx context.Context) (halyard.Patch, error) {
	patch := make(halyard.Patch)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := parts[0]
		value := parts[1]

		if e.opts.Prefix != "" {
			var hasPrefix bool
			if e.opts.CaseSensitive {
				hasPrefix = strings.HasPrefix(key, e.opts.Prefix)
			} else {
				hasPrefix = strings.HasPrefix(strings.ToUpper(key), strings.ToUpper(e.opts.Prefix))
			}

			if !hasPrefix {
				continue
			}
			key = key[len(e.opts.Prefix):]
		}

		if key == "" {
			continue
		}

		// Normalize: SERVER__PORT → server.port
		path, attribute := dotpath.SplitLast(dotpath.ToLowerDotPath(key))
		patch.Set(path, attribute, value)
	}

	return patch, nil
}

// Name returns a human-readable identifier for this source.
func (e *envSource) Name() string {
	if e.opts.Prefix != "" {
		return "env:" + e.opts.Prefix + "*"
	}
	return "env"
}
