package state

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/agentwire/go-sdk/pkg/core"
	"github.com/agentwire/go-sdk/pkg/core/events"
)

// ApplyPatch applies an RFC 6902 patch to a JSON document and returns the
// patched document. The input document is never mutated: on success a new
// document is returned, on failure a *core.StateApplyError names the
// operation that could not be applied and the original document remains
// valid.
//
// Documents are the encoding/json object model: map[string]any, []any and
// scalars.
func ApplyPatch(doc any, ops []events.JSONPatchOperation) (any, error) {
	result := deepCopyValue(doc)

	for i, op := range ops {
		var err error
		result, err = applyOperation(result, op)
		if err != nil {
			return nil, &core.StateApplyError{
				Op:   op.Op,
				Path: op.Path,
				Err:  fmt.Errorf("operation %d: %w", i, err),
			}
		}
	}

	return result, nil
}

func applyOperation(doc any, op events.JSONPatchOperation) (any, error) {
	path, err := parsePointer(op.Path)
	if err != nil {
		return nil, err
	}

	switch op.Op {
	case "add":
		return addValue(doc, path, deepCopyValue(op.Value))
	case "remove":
		doc, _, err = removeValue(doc, path)
		return doc, err
	case "replace":
		if _, err := getValue(doc, path); err != nil {
			return nil, err
		}
		doc, _, err = removeValue(doc, path)
		if err != nil {
			return nil, err
		}
		return addValue(doc, path, deepCopyValue(op.Value))
	case "move":
		from, err := parsePointer(op.From)
		if err != nil {
			return nil, err
		}
		doc, moved, err := removeValue(doc, from)
		if err != nil {
			return nil, err
		}
		return addValue(doc, path, moved)
	case "copy":
		from, err := parsePointer(op.From)
		if err != nil {
			return nil, err
		}
		value, err := getValue(doc, from)
		if err != nil {
			return nil, err
		}
		return addValue(doc, path, deepCopyValue(value))
	case "test":
		value, err := getValue(doc, path)
		if err != nil {
			return nil, err
		}
		if !jsonEqual(value, op.Value) {
			return nil, fmt.Errorf("test failed: value at path does not match")
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("unsupported operation %q", op.Op)
	}
}

// parsePointer splits an RFC 6901 JSON Pointer into unescaped tokens. The
// empty pointer refers to the whole document and yields no tokens.
func parsePointer(pointer string) ([]string, error) {
	if pointer == "" {
		return nil, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("invalid JSON Pointer %q", pointer)
	}

	tokens := strings.Split(pointer[1:], "/")
	for i, token := range tokens {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")
		tokens[i] = token
	}
	return tokens, nil
}

func getValue(doc any, path []string) (any, error) {
	current := doc
	for _, token := range path {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return nil, fmt.Errorf("key %q not found", token)
			}
			current = value
		case []any:
			index, err := arrayIndex(token, len(node), false)
			if err != nil {
				return nil, err
			}
			current = node[index]
		default:
			return nil, fmt.Errorf("cannot descend into %T with token %q", current, token)
		}
	}
	return current, nil
}

// addValue inserts value at path, growing arrays and object keys as RFC 6902
// "add" requires. An empty path replaces the whole document.
func addValue(doc any, path []string, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}

	parent, err := getValue(doc, path[:len(path)-1])
	if err != nil {
		return nil, err
	}
	token := path[len(path)-1]

	switch node := parent.(type) {
	case map[string]any:
		node[token] = value
		return doc, nil
	case []any:
		index, err := arrayIndex(token, len(node), true)
		if err != nil {
			return nil, err
		}
		node = append(node, nil)
		copy(node[index+1:], node[index:])
		node[index] = value
		return setParent(doc, path[:len(path)-1], node)
	default:
		return nil, fmt.Errorf("cannot add into %T with token %q", parent, token)
	}
}

func removeValue(doc any, path []string) (any, any, error) {
	if len(path) == 0 {
		return nil, doc, nil
	}

	parent, err := getValue(doc, path[:len(path)-1])
	if err != nil {
		return nil, nil, err
	}
	token := path[len(path)-1]

	switch node := parent.(type) {
	case map[string]any:
		removed, ok := node[token]
		if !ok {
			return nil, nil, fmt.Errorf("key %q not found", token)
		}
		delete(node, token)
		return doc, removed, nil
	case []any:
		index, err := arrayIndex(token, len(node), false)
		if err != nil {
			return nil, nil, err
		}
		removed := node[index]
		node = append(node[:index], node[index+1:]...)
		doc, err = setParent(doc, path[:len(path)-1], node)
		return doc, removed, err
	default:
		return nil, nil, fmt.Errorf("cannot remove from %T with token %q", parent, token)
	}
}

// setParent writes a replacement array back into its own parent. Appends and
// removals reallocate the slice header, so the grandparent must be updated.
func setParent(doc any, path []string, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}

	parent, err := getValue(doc, path[:len(path)-1])
	if err != nil {
		return nil, err
	}
	token := path[len(path)-1]

	switch node := parent.(type) {
	case map[string]any:
		node[token] = value
		return doc, nil
	case []any:
		index, err := arrayIndex(token, len(node), false)
		if err != nil {
			return nil, err
		}
		node[index] = value
		return doc, nil
	default:
		return nil, fmt.Errorf("cannot write into %T with token %q", parent, token)
	}
}

// arrayIndex parses an array reference token. The "-" token refers to the
// position past the last element and is only legal when appending.
func arrayIndex(token string, length int, appending bool) (int, error) {
	if token == "-" {
		if !appending {
			return 0, fmt.Errorf("token %q is only valid when adding", token)
		}
		return length, nil
	}

	// RFC 6901 forbids leading zeros in array references.
	if len(token) > 1 && token[0] == '0' {
		return 0, fmt.Errorf("invalid array index %q", token)
	}
	index, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q", token)
	}
	limit := length
	if appending {
		limit = length + 1
	}
	if index < 0 || index >= limit {
		return 0, fmt.Errorf("array index %d out of bounds (len %d)", index, length)
	}
	return index, nil
}

func deepCopyValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typed))
		for key, element := range typed {
			copied[key] = deepCopyValue(element)
		}
		return copied
	case []any:
		copied := make([]any, len(typed))
		for i, element := range typed {
			copied[i] = deepCopyValue(element)
		}
		return copied
	default:
		return value
	}
}

// jsonEqual compares two JSON values, treating integral float64 and int as
// the same number so that values built in Go code compare equal to decoded
// JSON.
func jsonEqual(a, b any) bool {
	if numA, okA := toFloat(a); okA {
		if numB, okB := toFloat(b); okB {
			return numA == numB
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
