package htp1

import (
	"sort"
	"sync"

	"github.com/htp1-protocol/htp1-go/pkg/state"
	"github.com/htp1-protocol/htp1-go/pkg/wire"
)

// Tx is a batch of pending local writes: one open transaction's
// uncommitted intent, keyed by absolute state path.
//
// Pending values overlay the mirrored state for readers before commit
// (read your own write). Commit flushes the batch as one outbound
// changemso command and clears the batch; the transaction stays open
// for reuse. Discard drops the batch silently - there is no implicit
// flush.
type Tx struct {
	c *Client

	mu      sync.Mutex
	pending map[string]any
	closed  bool
}

// Begin opens a transaction. At most one transaction may be open per
// client; Begin fails with ErrTxOpen while one is active.
func (c *Client) Begin() (*Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx != nil {
		return nil, ErrTxOpen
	}

	tx := &Tx{
		c:       c,
		pending: make(map[string]any),
	}
	c.tx = tx
	return tx, nil
}

// Commit flushes all pending writes as one changemso command.
//
// With nothing pending it returns (false, nil) and performs no I/O.
// Otherwise it sends one array of replace operations, clears the
// pending set and returns true. Commit does not wait for the device:
// the authoritative confirmation arrives asynchronously as an msoupdate
// echo, which updates the mirror and fires subscriber notifications.
// Until that echo arrives, readers see the pre-write mirrored value
// again, because the pending overlay is cleared here.
func (tx *Tx) Commit() (bool, error) {
	tx.mu.Lock()
	if tx.closed {
		tx.mu.Unlock()
		return false, ErrTxClosed
	}
	if len(tx.pending) == 0 {
		tx.mu.Unlock()
		return false, nil
	}

	// Deterministic op order; the device does not care.
	paths := make([]string, 0, len(tx.pending))
	for path := range tx.pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	ops := make([]state.Op, 0, len(paths))
	for _, path := range paths {
		ops = append(ops, state.Op{
			Op:    state.OpReplace,
			Path:  path,
			Value: tx.pending[path],
		})
	}
	tx.mu.Unlock()

	frame, err := wire.EncodeChangeMSO(ops)
	if err != nil {
		return false, err
	}

	cmd, payload := wire.Split(frame)
	if err := tx.c.sendFrame(cmd, payload); err != nil {
		return false, err
	}

	tx.mu.Lock()
	tx.pending = make(map[string]any)
	tx.mu.Unlock()

	tx.c.logger.Debug("committed transaction", "ops", len(ops))
	return true, nil
}

// Discard abandons all pending writes and closes the transaction.
// Idempotent. A new transaction can be opened afterwards.
func (tx *Tx) Discard() {
	tx.mu.Lock()
	if tx.closed {
		tx.mu.Unlock()
		return
	}
	tx.closed = true
	tx.pending = nil
	tx.mu.Unlock()

	tx.c.mu.Lock()
	if tx.c.tx == tx {
		tx.c.tx = nil
	}
	tx.c.mu.Unlock()
}

// invalidate closes the transaction without touching the client's
// transaction slot. Called with the client lock held during reset.
func (tx *Tx) invalidate() {
	tx.mu.Lock()
	tx.closed = true
	tx.pending = nil
	tx.mu.Unlock()
}

// set records one pending write.
func (tx *Tx) set(path string, value any) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return ErrTxClosed
	}
	tx.pending[path] = value
	return nil
}

// pendingValue looks up a pending write for path.
func (tx *Tx) pendingValue(path string) (any, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return nil, false
	}
	value, ok := tx.pending[path]
	return value, ok
}

// pendingLen returns the number of pending writes.
func (tx *Tx) pendingLen() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.pending)
}
