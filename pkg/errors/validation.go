package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidatePath validates an output path given on the command line or in a
// config file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
//   - Must not name a directory root ("/", ".")
//
// Absolute paths and ".." are allowed: output locations are chosen by the
// operator running the tool, not by untrusted input.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	clean := filepath.Clean(path)
	if clean == "." || clean == string(filepath.Separator) {
		return New(ErrCodeInvalidPath, "path %q names a directory root", path)
	}

	return nil
}

// ValidateName validates a bare file or directory name such as a ROI set
// name. Names must not contain path separators or be hidden files.
func ValidateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "name %q cannot contain path separators", name)
	}
	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidPath, "name %q cannot be a hidden file", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "name contains invalid control characters")
		}
	}
	return nil
}
