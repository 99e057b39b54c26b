package docstore

import (
	"fmt"
	"strings"
)

// Path addresses a single record.
type Path struct {
	Collection string
	Key        string
}

func (p Path) String() string {
	return p.Collection + "/" + p.Key
}

// Join builds a record path.
func Join(collection, key string) string {
	return collection + "/" + key
}

// ParsePath splits "collection/key", tolerating leading and trailing slashes.
func ParsePath(raw string) (Path, error) {
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	if len(parts) != 2 {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	for _, part := range parts {
		if err := validateSegment(part); err != nil {
			return Path{}, fmt.Errorf("%w: %q", err, raw)
		}
	}
	return Path{Collection: parts[0], Key: parts[1]}, nil
}

// ValidateCollection checks a bare collection name.
func ValidateCollection(collection string) error {
	if err := validateSegment(collection); err != nil {
		return fmt.Errorf("%w: %q", err, collection)
	}
	return nil
}

func validateSegment(s string) error {
	if s == "" || strings.ContainsAny(s, ".#$[]/") {
		return ErrInvalidPath
	}
	return nil
}
