// Package dotpath manipulates dot-delimited configuration paths.
package dotpath

import (
	"strings"
)

// Split breaks a path into its segments.
// Examples:
//   - "a.b.c" → ["a", "b", "c"]
//   - "a" → ["a"]
func Split(path string) []string {
	return strings.Split(path, ".")
}

// Join combines a parent path with a key.
// If either part is empty, the other is returned unchanged.
// Examples:
//   - Join("database", "host") → "database.host"
//   - Join("", "host") → "host"
func Join(parent, key string) string {
	if parent == "" {
		return key
	}
	if key == "" {
		return parent
	}
	return parent + "." + key
}

// SplitLast splits a path into its parent path and final segment.
// A path with no dot has no parent.
// Examples:
//   - SplitLast("a.b.c") → ("a.b", "c")
//   - SplitLast("a") → ("", "a")
func SplitLast(path string) (parent, last string) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// ToLowerDotPath normalizes a configuration key to a lowercase dot-separated
// path. Double underscores (__) are treated as level separators and converted
// to dots. Single underscores within a level are preserved.
// Examples:
//   - "FOO__BAR" → "foo.bar"
//   - "DB_MAX_CONNECTIONS" → "db_max_connections"
func ToLowerDotPath(key string) string {
	normalized := strings.ReplaceAll(key, "__", ".")
	return strings.ToLower(normalized)
}
