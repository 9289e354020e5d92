package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is matched by every error raised while building fields from a type.
	ErrInvalidConfiguration = errors.New("invalid field configuration")

	// ErrGraphTooDeep is raised when the visitation chain exceeds the maximum depth.
	ErrGraphTooDeep = errors.New("the dependency graph is too deep, please review your schema")

	// ErrInvalidIndex is returned by SearchIndex.Validate and SynonymMap.Validate.
	ErrInvalidIndex = errors.New("invalid index definition")
)

// ConfigurationError describes why a field of a type cannot be mapped.
type ConfigurationError struct {
	Type   string
	Field  string
	Reason string
	err    error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("schema: %s.%s: %s", e.Type, e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func (e *ConfigurationError) Unwrap() error { return e.err }

func configErr(typeName, field, reason string) error {
	return &ConfigurationError{Type: typeName, Field: field, Reason: reason}
}

func invalidIndex(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidIndex, fmt.Sprintf(format, args...))
}
