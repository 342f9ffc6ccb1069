// Package sourceenv loads configuration patches from environment variables.
//
// Key normalization: FOO__BAR → path "foo", attribute "bar";
// FOO_BAR → top-level attribute "foo_bar".
//
// Example:
//
//	source := sourceenv.New(sourceenv.Options{Prefix: "APP_"})
//	loader := halyard.NewLoader(reg).WithSource(source)
package sourceenv
