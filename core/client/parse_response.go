package client

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/flowmesh/agentgraph/core/parse"
	"github.com/flowmesh/agentgraph/providers/ai"
)

// ParseResponseAs parses response's Content field into the requested type T,
// delegating to [parse.ParseStringAs] for the actual conversion (direct
// reflection for primitives, JSON unmarshal with jsonrepair fallback for
// structs/maps/slices). Returns a wrapped error naming T's kind when parsing
// fails.
func ParseResponseAs[T any](response *ai.ChatResponse) (T, error) {
	var zero T

	if response == nil {
		return zero, fmt.Errorf("failed to parse response as %s: response is nil", kindLabel[T]())
	}

	parsed, err := parse.ParseStringAs[T](response.Content)
	if err != nil {
		return zero, fmt.Errorf("failed to parse response as %s: %w", kindLabel[T](), err)
	}

	return parsed, nil
}

// kindLabel returns a short, human-readable label for T's underlying kind,
// used in ParseResponseAs error messages (e.g. "bool", "int", "float").
func kindLabel[T any]() string {
	kind := reflect.TypeFor[T]().Kind()

	switch {
	case kind == reflect.Bool:
		return "bool"
	case kind == reflect.String:
		return "string"
	case isIntKind(kind):
		return "int"
	case isUintKind(kind):
		return "uint"
	case kind == reflect.Float32 || kind == reflect.Float64:
		return "float"
	case kind == reflect.Struct:
		return "struct"
	case kind == reflect.Map:
		return "map"
	case kind == reflect.Slice || kind == reflect.Array:
		return "slice"
	default:
		return strings.ToLower(kind.String())
	}
}

func isIntKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isUintKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}
