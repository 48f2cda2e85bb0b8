package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateTrackName validates a track name used as a query key and a label.
//
// The rules are conservative:
//   - No empty names
//   - No control characters
//   - No leading '$' (mongo operator injection)
//   - Maximum length of 256 characters
func ValidateTrackName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "track name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidName, "track name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "track name contains invalid control characters")
		}
	}

	if strings.HasPrefix(name, "$") {
		return New(ErrCodeInvalidName, "track name cannot start with '$': %q", name)
	}

	return nil
}

// collectionNameRegex matches collection and database names accepted by mongo
// without quoting.
var collectionNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ValidateCollectionName validates a mongo collection or database name.
func ValidateCollectionName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "collection name cannot be empty")
	}

	const maxLength = 120
	if len(name) > maxLength {
		return New(ErrCodeInvalidName, "collection name too long (max %d characters)", maxLength)
	}

	if strings.HasPrefix(name, "system.") {
		return New(ErrCodeInvalidName, "collection name cannot use the reserved system. prefix")
	}

	if !collectionNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid collection name: %q", name)
	}

	return nil
}

// hexColorRegex matches #rgb and #rrggbb colors.
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateColor validates a hex color string. The empty string is accepted
// and means "use the default".
func ValidateColor(c string) error {
	if c == "" {
		return nil
	}
	if !hexColorRegex.MatchString(c) {
		return New(ErrCodeInvalidInput, "invalid color %q (want #rgb or #rrggbb)", c)
	}
	return nil
}
