package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Patch errors.
var (
	ErrUnsupportedOp = errors.New("unsupported patch operation")
)

// Supported patch operations. Both set the value at the resolved
// location; the device does not grow or shrink structure at runtime.
const (
	OpAdd     = "add"
	OpReplace = "replace"
)

// Op is one JSON-Patch-style operation against the mso document.
type Op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// DecodeOps decodes an msoupdate payload, which is either a single
// operation object or an array of them.
func DecodeOps(data []byte) ([]Op, error) {
	var ops []Op
	if err := json.Unmarshal(data, &ops); err == nil {
		return ops, nil
	}

	var single Op
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("decode patch payload: %w", err)
	}
	return []Op{single}, nil
}

// Apply executes one operation against the tree.
//
// Operations other than "add" and "replace" fail with ErrUnsupportedOp:
// the device stream no longer matches assumed semantics and the failure
// must be reported, not swallowed.
func (t *Tree) Apply(op Op) error {
	switch op.Op {
	case OpAdd, OpReplace:
		return t.Set(op.Path, op.Value)
	default:
		return fmt.Errorf("%w: %q at %s", ErrUnsupportedOp, op.Op, op.Path)
	}
}
