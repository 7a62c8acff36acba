// Package patch applies RFC 6902 JSON Patch sequences to arbitrary JSON
// values decoded into Go (map[string]any, []any, scalars). Application is
// all-or-nothing: a failing operation aborts the whole batch and the caller
// keeps the original, unmodified document.
package patch

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type (
	// Op is a single RFC 6902 operation. Move and copy require From; add,
	// replace and test require Value (which may legitimately be nil for add
	// and replace).
	Op struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		Value any    `json:"value,omitempty"`
		From  string `json:"from,omitempty"`
	}

	// Error reports the first operation that failed. The document the patch
	// was applied to is guaranteed untouched.
	Error struct {
		// OpIndex is the zero-based index of the failing operation.
		OpIndex int
		// Op is the failing operation's verb.
		Op string
		// Path is the failing operation's path.
		Path string
		// Err describes the failure.
		Err error
	}
)

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("patch op %d (%s %s): %v", e.OpIndex, e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying failure.
func (e *Error) Unwrap() error { return e.Err }

// Apply applies ops to doc strictly in order and returns the patched
// document. On failure the original document is returned together with an
// *Error naming the failing operation index; no partial application is ever
// observable. An empty ops slice is a no-op success.
func Apply(doc any, ops []Op) (any, error) {
	if len(ops) == 0 {
		return doc, nil
	}
	work := Clone(doc)
	for i, op := range ops {
		next, err := apply(work, op)
		if err != nil {
			return doc, &Error{OpIndex: i, Op: op.Op, Path: op.Path, Err: err}
		}
		work = next
	}
	return work, nil
}

func apply(doc any, op Op) (any, error) {
	switch op.Op {
	case "add":
		return add(doc, op.Path, Clone(op.Value))
	case "remove":
		next, _, err := remove(doc, op.Path)
		return next, err
	case "replace":
		return replace(doc, op.Path, Clone(op.Value))
	case "move":
		if op.From == "" && op.Path == "" {
			return doc, nil
		}
		if op.From == "" {
			return nil, fmt.Errorf("move requires from")
		}
		next, val, err := remove(doc, op.From)
		if err != nil {
			return nil, err
		}
		return add(next, op.Path, val)
	case "copy":
		if op.From == "" && op.Path != "" {
			// Copying the root somewhere is legal; an empty from addresses it.
			return add(doc, op.Path, Clone(doc))
		}
		val, err := get(doc, op.From)
		if err != nil {
			return nil, err
		}
		return add(doc, op.Path, Clone(val))
	case "test":
		val, err := get(doc, op.Path)
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(val, op.Value) {
			return nil, fmt.Errorf("test failed: value at %q does not match", op.Path)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("unknown op %q", op.Op)
	}
}

// add inserts value at path. The empty path replaces the document root; the
// "-" array token appends.
func add(doc any, path string, value any) (any, error) {
	if path == "" {
		return value, nil
	}
	parent, last, err := resolveParent(doc, path)
	if err != nil {
		return nil, err
	}
	switch p := parent.(type) {
	case map[string]any:
		p[last] = value
		return doc, nil
	case []any:
		idx, err := arrayIndex(last, len(p), true)
		if err != nil {
			return nil, err
		}
		p = append(p, nil)
		copy(p[idx+1:], p[idx:])
		p[idx] = value
		return setParent(doc, path, p)
	default:
		return nil, fmt.Errorf("path %q does not address a container", path)
	}
}

func replace(doc any, path string, value any) (any, error) {
	if path == "" {
		return value, nil
	}
	if _, err := get(doc, path); err != nil {
		return nil, err
	}
	parent, last, err := resolveParent(doc, path)
	if err != nil {
		return nil, err
	}
	switch p := parent.(type) {
	case map[string]any:
		p[last] = value
		return doc, nil
	case []any:
		idx, err := arrayIndex(last, len(p), false)
		if err != nil {
			return nil, err
		}
		p[idx] = value
		return doc, nil
	default:
		return nil, fmt.Errorf("path %q does not address a container", path)
	}
}

// remove deletes the value at path and returns the updated document together
// with the removed value (used by move).
func remove(doc any, path string) (any, any, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("cannot remove document root")
	}
	removed, err := get(doc, path)
	if err != nil {
		return nil, nil, err
	}
	parent, last, err := resolveParent(doc, path)
	if err != nil {
		return nil, nil, err
	}
	switch p := parent.(type) {
	case map[string]any:
		delete(p, last)
		return doc, removed, nil
	case []any:
		idx, err := arrayIndex(last, len(p), false)
		if err != nil {
			return nil, nil, err
		}
		p = append(p[:idx], p[idx+1:]...)
		next, err := setParent(doc, path, p)
		if err != nil {
			return nil, nil, err
		}
		return next, removed, nil
	default:
		return nil, nil, fmt.Errorf("path %q does not address a container", path)
	}
}

// get resolves a JSON Pointer against doc.
func get(doc any, path string) (any, error) {
	if path == "" {
		return doc, nil
	}
	tokens, err := parsePointer(path)
	if err != nil {
		return nil, err
	}
	cur := doc
	for _, tok := range tokens {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[tok]
			if !ok {
				return nil, fmt.Errorf("missing member %q", tok)
			}
			cur = v
		case []any:
			idx, err := arrayIndex(tok, len(c), false)
			if err != nil {
				return nil, err
			}
			cur = c[idx]
		default:
			return nil, fmt.Errorf("cannot descend into non-container at %q", tok)
		}
	}
	return cur, nil
}

// resolveParent returns the container holding the pointer's final token.
func resolveParent(doc any, path string) (any, string, error) {
	tokens, err := parsePointer(path)
	if err != nil {
		return nil, "", err
	}
	last := tokens[len(tokens)-1]
	parentPath := joinPointer(tokens[:len(tokens)-1])
	parent, err := get(doc, parentPath)
	if err != nil {
		return nil, "", err
	}
	return parent, last, nil
}

// setParent writes back a reallocated slice into the container above it.
// Maps mutate in place so only slice parents need this.
func setParent(doc any, path string, value []any) (any, error) {
	tokens, err := parsePointer(path)
	if err != nil {
		return nil, err
	}
	parentPath := joinPointer(tokens[:len(tokens)-1])
	if parentPath == "" {
		return any(value), nil
	}
	return replace(doc, parentPath, any(value))
}

func parsePointer(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("pointer %q must start with /", path)
	}
	parts := strings.Split(path[1:], "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		p = strings.ReplaceAll(p, "~0", "~")
		parts[i] = p
	}
	return parts, nil
}

func joinPointer(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, tok := range tokens {
		tok = strings.ReplaceAll(tok, "~", "~0")
		tok = strings.ReplaceAll(tok, "/", "~1")
		b.WriteString("/")
		b.WriteString(tok)
	}
	return b.String()
}

// arrayIndex parses an array token. When appendOK is set the "-" token and
// the one-past-the-end index are valid (add semantics).
func arrayIndex(tok string, length int, appendOK bool) (int, error) {
	if tok == "-" {
		if !appendOK {
			return 0, fmt.Errorf("token - only valid for add")
		}
		return length, nil
	}
	idx, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q", tok)
	}
	limit := length
	if appendOK {
		limit = length + 1
	}
	if idx < 0 || idx >= limit {
		return 0, fmt.Errorf("array index %d out of bounds (len %d)", idx, length)
	}
	return idx, nil
}

// Clone deep-copies a JSON value (maps, slices, scalars). Values outside the
// JSON domain are returned as-is.
func Clone(v any) any {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, val := range c {
			out[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, val := range c {
			out[i] = Clone(val)
		}
		return out
	default:
		return v
	}
}
