package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateEntryLabel validates a genetic-entry label before it enters a pool.
//
// Labels end up in CSV cells, SVG text and PDF tables, so the rules are
// conservative:
//   - No empty labels
//   - No control characters
//   - No commas, quotes or angle brackets
//   - Maximum length of 64 characters
func ValidateEntryLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return New(ErrCodeInvalidConfig, "entry label cannot be empty")
	}

	if len(label) > 64 {
		return New(ErrCodeInvalidConfig, "entry label too long (max 64 characters): %q", label)
	}

	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "entry label contains invalid control characters: %q", label)
		}
	}

	if strings.ContainsAny(label, `,"<>&`) {
		return New(ErrCodeInvalidConfig, "entry label contains invalid characters: %q", label)
	}

	return nil
}

// poolNameRegex matches pool and subblock type names ("AG", "LD", "AG-vs-LD").
var poolNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidatePoolName validates a pool or subblock type name.
func ValidatePoolName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "pool name cannot be empty")
	}
	if !poolNameRegex.MatchString(name) {
		return New(ErrCodeInvalidConfig, "invalid pool name: %q", name)
	}
	return nil
}

// ValidatePath validates a relative output path for safety.
// It prevents path traversal when file names come from API input.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidInput, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidInput, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidInput, "path cannot contain backslashes")
	}

	return nil
}
