package htp1

import (
	"encoding/json"
	"fmt"

	"github.com/htp1-protocol/htp1-go/pkg/log"
	"github.com/htp1-protocol/htp1-go/pkg/state"
	"github.com/htp1-protocol/htp1-go/pkg/subscription"
	"github.com/htp1-protocol/htp1-go/pkg/transport"
	"github.com/htp1-protocol/htp1-go/pkg/wire"
)

// receive is the client's receive loop. It reads frames from conn and
// dispatches decoded commands until the socket closes or errors.
//
// A handler failure is isolated: the message is dropped and logged, the
// loop continues. A connection loss re-arms background reconnection and
// notifies the lifecycle subject, unless the client itself initiated
// the close.
func (c *Client) receive(conn transport.Conn, connID string, done chan struct{}) {
	defer close(done)
	c.logger.Debug("receive loop started")

	for {
		frame, err := conn.Receive()
		if err != nil {
			// Local misuse (receive after close); treat like a close.
			c.logger.Debug("receive loop: read failed", "err", err)
			c.handleConnectionLost(connID)
			return
		}

		switch frame.Type {
		case transport.FrameClose:
			c.handleConnectionLost(connID)
			return

		case transport.FrameText:
			c.dispatch(connID, frame.Text)

		default:
			// Not interested.
		}
	}
}

// dispatch decodes one "<command> <json>" text frame and invokes the
// registered handler, if any.
func (c *Client) dispatch(connID, text string) {
	cmd, payload := wire.Split(text)
	c.plog.Log(log.NewFrameEvent(connID, log.DirectionIn, cmd, payload))

	handler, ok := c.handlers[cmd]
	if !ok {
		// Unknown commands are ignored by design: the device may grow
		// its vocabulary without breaking older clients.
		c.logger.Debug("ignoring unknown command", "command", cmd)
		return
	}

	if err := handler([]byte(payload)); err != nil {
		// Don't exit if a handler has a problem, just log it.
		c.logger.Error("command handler failed", "command", cmd, "err", err)
		c.plog.Log(log.NewErrorEvent(connID, err, "handler "+cmd))
	}
}

// handleConnectionLost re-arms reconnection and notifies the lifecycle
// subject after an unexpected connection loss.
func (c *Client) handleConnectionLost(connID string) {
	c.mu.Lock()
	deliberate := c.closing
	if !deliberate {
		c.conn = nil
		c.recvDone = nil
		c.ready = false
	}
	c.mu.Unlock()

	if deliberate {
		c.logger.Debug("receive loop exited (local close)")
		return
	}

	c.logger.Debug("connection lost, re-arming reconnect")
	c.plog.Log(log.NewStateChangeEvent(connID, "ready", "disconnected", "connection lost"))

	// Loss is announced before reconnection is re-armed, so the
	// supervisor's connection-established notification cannot overtake
	// it.
	c.subs.Notify(subscription.SubjectConnection, nil)
	c.TryConnect()
}

// handleMSO installs a full state snapshot. This is the only place the
// mirrored document is replaced wholesale.
func (c *Client) handleMSO(payload []byte) error {
	var root any
	if err := json.Unmarshal(payload, &root); err != nil {
		return fmt.Errorf("decode mso payload: %w", err)
	}

	c.mu.Lock()
	c.tree.Replace(root)
	if !c.ready {
		c.ready = true
		close(c.readyCh)
	}
	c.mu.Unlock()

	c.logger.Debug("installed full mso snapshot")
	return nil
}

// handleMSOUpdate applies one patch operation or an array of them.
// After each applied operation, subscribers registered for that exact
// path are notified with the new value, strictly after the mutation.
func (c *Client) handleMSOUpdate(payload []byte) error {
	ops, err := state.DecodeOps(payload)
	if err != nil {
		return err
	}
	c.logger.Debug("applying msoupdate", "ops", len(ops))

	for _, op := range ops {
		c.mu.Lock()
		err := c.tree.Apply(op)
		c.mu.Unlock()
		if err != nil {
			return err
		}

		c.subs.Notify(op.Path, op.Value)
	}
	return nil
}
