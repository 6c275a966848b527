// Package connection provides reconnection policy for the HTP-1 client.
//
// This package handles:
//   - Exponential backoff between reconnection attempts
//   - Supervised background reconnection with deterministic teardown
//
// # Reconnection Strategy
//
// When a connection attempt fails, the supervisor waits and retries:
//
//  1. Initial delay: 5 seconds
//  2. Exponential increase: 10s, 20s, 40s, 80s, 160s
//  3. Maximum delay: 300 seconds
//  4. Continue at 300s until successful
//  5. Reset to 5s on successful connection
//
// Unlike a keepalive loop, the supervisor exits once a connection
// succeeds. A later connection loss re-arms it by starting a new
// supervisor run.
package connection
