package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxPointIDLength bounds point identifiers read from untrusted input.
const maxPointIDLength = 256

// ValidatePointID validates a point identifier read from constraint input.
//
// The rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters or null bytes
//   - No leading or trailing whitespace (CSV padding is almost always a typo)
//   - Maximum length of 256 bytes
func ValidatePointID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "point id cannot be empty")
	}

	if len(id) > maxPointIDLength {
		return New(ErrCodeInvalidInput, "point id too long (max %d characters)", maxPointIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "point id %q contains control characters", id)
		}
	}

	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidInput, "point id %q has surrounding whitespace", id)
	}

	return nil
}

// ValidateDistance validates a measured distance. Distances must be finite
// and non-negative.
func ValidateDistance(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return New(ErrCodeInvalidInput, "distance %v is not a finite number", d)
	}
	if d < 0 {
		return New(ErrCodeInvalidInput, "distance %v is negative", d)
	}
	return nil
}

// ValidateRunID validates a run identifier used as a storage key.
// It prevents path traversal through file-backed stores.
//
// Validation rules:
//   - Run id cannot be empty
//   - Maximum length of 128 characters
//   - Only letters, digits, '-' and '_'
func ValidateRunID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "run id cannot be empty")
	}

	const maxRunIDLength = 128
	if len(id) > maxRunIDLength {
		return New(ErrCodeInvalidInput, "run id too long (max %d characters)", maxRunIDLength)
	}

	for _, r := range id {
		if r == '-' || r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			continue
		}
		return New(ErrCodeInvalidInput, "run id %q contains invalid character %q", id, r)
	}

	return nil
}

// ValidatePath validates a relative output path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	return nil
}
