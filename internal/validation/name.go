package validation

import (
	"errors"
	"strings"
)

// ValidateFolder validates a pack folder name as it appears in a storage
// key segment.
func ValidateFolder(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("folder name is required")
	}

	if strings.Contains(name, "/") {
		return errors.New("folder name must be a single path segment")
	}

	if trimmed == "." || trimmed == ".." {
		return errors.New("folder name is not a valid path segment")
	}

	if len(name) > 255 {
		return errors.New("folder name is too long (max 255 characters)")
	}

	return nil
}

// ValidateID validates a document id supplied on the command line.
func ValidateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New(kind + " id is required")
	}

	if strings.Contains(id, "/") {
		return errors.New(kind + " id must not contain '/'")
	}

	return nil
}
