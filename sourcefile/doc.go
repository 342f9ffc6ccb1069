// Package sourcefile loads configuration patches from files.
//
// Supported formats: halyard native text (.hal), YAML, JSON, and TOML,
// auto-detected from the extension. Nested documents are folded into
// path → {attribute: value} form, so every format produces the same tree
// shape after merging.
//
// Example:
//
//	source := sourcefile.New("config.yaml", sourcefile.Options{Required: true})
//	loader := halyard.NewLoader(reg).WithSource(source)
package sourcefile
