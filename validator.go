package mgm

import (
	"encoding/json"
	"fmt"
	"regexp"
)

const (
	maxEventNameLength = 255
	maxPropertyDepth   = 3
)

// Event names start with a letter, or a literal $ reserved for system
// events; the rest is alphanumeric or underscore.
var eventNamePattern = regexp.MustCompile(`^\$?[A-Za-z][A-Za-z0-9_]*$`)

// ValidateEventName checks event-name legality.
func ValidateEventName(name string) error {
	if name == "" {
		return &ValidationError{Field: "event name", Reason: "must not be empty"}
	}
	if len(name) > maxEventNameLength {
		return &ValidationError{
			Field:  "event name",
			Reason: fmt.Sprintf("must not exceed %d characters", maxEventNameLength),
		}
	}
	if !eventNamePattern.MatchString(name) {
		return &ValidationError{
			Field:  "event name",
			Reason: "must start with a letter (or $) followed by letters, digits or underscores",
		}
	}
	return nil
}

// ValidateProperties checks that a property map is JSON-shaped and nested at
// most three object levels deep, counting the map itself. Nesting increases
// when a value is a map; an object inside a list counts the same as one
// nested directly.
func ValidateProperties(props map[string]any) error {
	if props == nil {
		return nil
	}
	return validateValue(props, 0)
}

func validateValue(value any, depth int) error {
	switch v := value.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return nil
	case map[string]any:
		if depth >= maxPropertyDepth {
			return &ValidationError{
				Field:  "properties",
				Reason: fmt.Sprintf("nested more than %d levels deep", maxPropertyDepth),
			}
		}
		for _, nested := range v {
			if err := validateValue(nested, depth+1); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range v {
			if err := validateValue(item, depth); err != nil {
				return err
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:  "properties",
			Reason: fmt.Sprintf("unsupported value type %T", value),
		}
	}
}
