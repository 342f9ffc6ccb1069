// Package halyard provides a declarative configuration registry with default
// values, file overrides, and lazy cross-references between values.
//
// Quick Start:
//
//	reg := halyard.NewRegistry()
//
//	err := reg.Register(halyard.Entry{
//	    Path:     "app.server",
//	    Defaults: map[string]any{"port": 8080, "host": "localhost"},
//	})
//
//	loader := halyard.NewLoader(reg).
//	    WithSource(sourcefile.New("config.hal", sourcefile.Options{})).
//	    WithSource(sourceenv.New(sourceenv.Options{Prefix: "APP_"}))
//
//	err = loader.Load(context.Background())
//	port, err := reg.GetAttribute("app.server", "port")
//
// Values loaded from files win over registered defaults; defaults only fill
// gaps. Unregistering an entry removes its defaults but keeps file-provided
// overrides. A value written as "!REF other.path.attr" resolves lazily
// through the registry and is checked for reference cycles after each load.
//
// The native file format is an indentation-based subset of YAML with custom
// extensions; see Parse. Structured YAML, JSON, and TOML files are supported
// through the sourcefile package.
//
// See example_test.go and README.md for detailed usage.
package halyard
