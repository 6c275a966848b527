// Package htp1 implements the client for the Monoprice HTP-1 control
// protocol.
//
// The HTP-1 speaks a small text protocol over a websocket at
// ws://<host>/ws/controller. Its entire configuration is one JSON
// document, the "mso"; the device pushes it wholesale on request and
// streams incremental {op,path,value} changes afterwards. The client
// maintains a continuously synchronized local mirror of that document
// across an unreliable long-lived connection.
//
// # Lifecycle
//
//	c := htp1.New(htp1.DefaultConfig("htp1.local"))
//	if err := c.Connect(ctx); err != nil { ... }   // or c.TryConnect()
//	defer c.Stop()
//
// Connect dials, requests the full mso and waits for it; TryConnect
// retries in the background with exponential backoff. A connection loss
// during normal operation is not an error: the client re-arms the
// background reconnect and notifies the lifecycle subject.
//
// # Reads and writes
//
// Reads go through accessor methods (Volume, Muted, Input, ...) backed
// by the mirrored document. Writes are batched in a transaction:
//
//	tx, err := c.Begin()
//	if err != nil { ... }
//	tx.SetVolume(-25)
//	tx.SetMuted(false)
//	sent, err := tx.Commit()
//
// Pending writes are visible to readers before commit (read your own
// write). Commit is send-and-forget: the device confirms each change
// with an msoupdate echo, which is what updates the mirror and fires
// subscriber notifications.
//
// # Subscriptions
//
// Subscribe registers a callback for an absolute state path, or for
// subscription.SubjectConnection to observe connect/disconnect events.
// Callbacks run on the receive loop goroutine, in registration order.
package htp1
