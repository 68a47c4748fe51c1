package contract

import (
	"errors"
	"fmt"
)

// ErrShape marks responses whose structure violates the platform contract.
var ErrShape = errors.New("contract shape violation")

// ErrAssertion marks responses that are well-formed but carry the wrong content.
var ErrAssertion = errors.New("contract assertion failed")

// PlatformFields are the keys every platform record must carry as strings.
var PlatformFields = []string{"name", "manufacturer", "ID", "type"}

// CheckPlatform asserts v is a JSON object with every PlatformFields key present
// and string-typed. Extra keys are allowed.
func CheckPlatform(v any) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: platform is %s, want object", ErrShape, jsonKind(v))
	}
	for _, field := range PlatformFields {
		val, present := obj[field]
		if !present {
			return fmt.Errorf("%w: platform missing %q", ErrShape, field)
		}
		if _, isString := val.(string); !isString {
			return fmt.Errorf("%w: platform field %q is %s, want string", ErrShape, field, jsonKind(val))
		}
	}
	return nil
}

// CheckPlatformList asserts v is a JSON array whose every element passes CheckPlatform.
// An empty array passes.
func CheckPlatformList(v any) error {
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("%w: platform list is %s, want array", ErrShape, jsonKind(v))
	}
	for i, elem := range list {
		if err := CheckPlatform(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// jsonKind names the JSON type of a value decoded into any.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// stringField returns obj[key] when v is an object holding a string there.
func stringField(v any, key string) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := obj[key].(string)
	return s, ok
}
