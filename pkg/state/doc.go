// Package state implements the mirrored device state tree and the patch
// engine that mutates it.
//
// The HTP-1 exposes its entire configuration as one JSON document (the
// "mso") and streams incremental changes as JSON-Patch-style operations.
// This package keeps that document as an untyped tree, exactly as decoded
// by encoding/json (map[string]any, []any, scalars), and applies
// {op, path, value} operations against it.
//
// # Paths
//
// Paths are absolute and slash-delimited ("/volume", "/inputs/2/label").
// Each segment resolves a map key or, for arrays, a decimal index. The
// parent container is resolved from all but the final segment; the final
// segment selects the slot to read or assign.
//
// # Operations
//
// Only "add" and "replace" are supported, and both set the value at the
// resolved location. The device is not expected to add or remove
// structure at runtime, so any other op is a protocol violation and
// fails with ErrUnsupportedOp.
//
// A Tree is not safe for concurrent use. The owning client serializes
// access: only its receive loop writes, readers go through its lock.
package state
