// Package ws provides the real-time relay: WebSocket connection handling,
// the connection registry and envelope dispatch.
//
// The package implements:
//   - Hub: registry of open clients with snapshot-then-send broadcasts
//   - Dispatcher: parses {type, value} envelopes and routes them by type
//   - Handler: upgrades requests and runs the read/write pumps per client
//   - Service: wires the pieces together and reaps idle clients
//
// Routing:
//   - "image" envelopes are re-encoded and sent to every client, sender included
//   - "command" envelopes go to a CommandHandler and are never broadcast
//   - any other type is dropped; malformed frames are logged and dropped
//
// Each client's frames are handled in order by its read pump. Sends are
// queued per client and a full queue disconnects that client only.
package ws
