package state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Tree errors.
var (
	ErrNoState      = errors.New("no state present")
	ErrEmptyPath    = errors.New("empty path")
	ErrPathNotFound = errors.New("path not found")
	ErrNotContainer = errors.New("node is not a container")
	ErrBadIndex     = errors.New("invalid array index")
)

// Tree holds the mirrored mso document.
//
// The root is either absent (never synced, or reset after disconnect) or
// the complete current device configuration. Partial states are never
// observable: Replace swaps the whole document, Set mutates one leaf.
type Tree struct {
	root    any
	present bool
}

// NewTree creates an empty tree with no state present.
func NewTree() *Tree {
	return &Tree{}
}

// Present reports whether a full state document has been installed.
func (t *Tree) Present() bool {
	return t.present
}

// Replace installs a complete state document, discarding the previous one.
// This is the only wholesale swap; all other mutation goes through Set.
func (t *Tree) Replace(root any) {
	t.root = root
	t.present = true
}

// Clear drops the state document entirely.
func (t *Tree) Clear() {
	t.root = nil
	t.present = false
}

// Raw returns the underlying document. Callers must not mutate it.
func (t *Tree) Raw() any {
	return t.root
}

// Get resolves path and returns the value stored there.
func (t *Tree) Get(path string) (any, error) {
	if !t.present {
		return nil, ErrNoState
	}

	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	node := t.root
	for _, seg := range segments {
		node, err = child(node, seg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return node, nil
}

// Set resolves the parent container of path and assigns value at the
// final segment. Map keys may be created; array slots must already exist.
func (t *Tree) Set(path string, value any) error {
	if !t.present {
		return ErrNoState
	}

	segments, err := splitPath(path)
	if err != nil {
		return err
	}

	last := segments[len(segments)-1]
	parent := t.root
	for _, seg := range segments[:len(segments)-1] {
		parent, err = child(parent, seg)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	switch container := parent.(type) {
	case map[string]any:
		container[last] = value
	case []any:
		idx, err := arrayIndex(container, last)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		container[idx] = value
	default:
		return fmt.Errorf("%s: %w", path, ErrNotContainer)
	}
	return nil
}

// splitPath splits an absolute slash-delimited path into segments.
// "/volume" -> ["volume"], "/inputs/2/label" -> ["inputs", "2", "label"].
func splitPath(path string) ([]string, error) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil, ErrEmptyPath
	}
	return strings.Split(trimmed, "/"), nil
}

// child resolves one path segment against a container node.
func child(node any, seg string) (any, error) {
	switch container := node.(type) {
	case map[string]any:
		value, ok := container[seg]
		if !ok {
			return nil, fmt.Errorf("%w: key %q", ErrPathNotFound, seg)
		}
		return value, nil
	case []any:
		idx, err := arrayIndex(container, seg)
		if err != nil {
			return nil, err
		}
		return container[idx], nil
	default:
		return nil, fmt.Errorf("%w: at %q", ErrNotContainer, seg)
	}
}

// arrayIndex parses seg as a decimal index and bounds-checks it.
func arrayIndex(arr []any, seg string) (int, error) {
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadIndex, seg)
	}
	if idx < 0 || idx >= len(arr) {
		return 0, fmt.Errorf("%w: %d out of range (len %d)", ErrBadIndex, idx, len(arr))
	}
	return idx, nil
}
