// Package paths normalizes file paths and import targets to a canonical
// forward-slash form so glob rules behave identically on every platform.
package paths

import (
	"path/filepath"
	"strings"
)

// NormalizePath converts a file path to forward-slash form.
func NormalizePath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
}

// NormalizeImportPath converts an import target to forward-slash form.
// Import targets come from many languages: Python-style dotted module
// paths ("auth.tokens"), slashed paths ("components/features/map"), or
// Windows-separated paths. A dotted path is only rewritten when the
// target carries no slash at all, so file-like targets keep their
// extension intact.
func NormalizeImportPath(target string) string {
	normalized := NormalizePath(target)
	if strings.Contains(normalized, "/") {
		return normalized
	}
	return strings.ReplaceAll(normalized, ".", "/")
}

// IsWithin reports whether a normalized path sits under the given
// normalized directory prefix.
func IsWithin(path, dir string) bool {
	if dir == "" || dir == "." {
		return true
	}
	return path == dir || strings.HasPrefix(path, dir+"/")
}
