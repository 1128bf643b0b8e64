package osufeed

// ConnectionState represents where the client currently is in its
// connection lifecycle.
//
// ConnectionState is a string type that can hold one of the predefined
// values below. Using a string type allows for easy JSON serialization
// and human-readable logging while maintaining type safety through the
// defined constants.
//
// The happy path walks [StateDisconnected] → [StateStartingProcess] →
// [StateWaitingForProcess] → [StateConnecting] → [StateConnected]
// (unsupervised clients skip the two process states). [StateReconnecting]
// is reached from [StateConnected] on transport loss while the transport
// retries, and [StateError] from anywhere on unrecoverable failure.
// [StateDisconnected] is both the initial state and the only fully
// terminal one; a stopped client can always be started again.
type ConnectionState string

const (
	// StateDisconnected means no session is active. Initial state, and
	// the state after Stop or a final, unrecovered connection loss.
	StateDisconnected ConnectionState = "disconnected"

	// StateStartingProcess means the supervised companion process is
	// being launched.
	StateStartingProcess ConnectionState = "starting_process"

	// StateWaitingForProcess means the companion reported readiness and
	// the client is giving its server a moment to settle.
	StateWaitingForProcess ConnectionState = "waiting_for_process"

	// StateConnecting means the WebSocket dial is in flight.
	StateConnecting ConnectionState = "connecting"

	// StateConnected means the snapshot feed is live.
	StateConnected ConnectionState = "connected"

	// StateReconnecting means the connection dropped and the transport
	// is running its bounded reconnect sequence.
	StateReconnecting ConnectionState = "reconnecting"

	// StateError means an unrecoverable failure was observed, such as a
	// companion that cannot be launched or a failed dial.
	StateError ConnectionState = "error"
)

// String returns the string representation of the state.
// This implements the fmt.Stringer interface.
func (s ConnectionState) String() string {
	return string(s)
}

// StateCallback observes connection-state transitions.
//
// Callbacks registered via [WithStateCallback] are invoked synchronously,
// in registration order, while the state lock is held; this guarantees
// callbacks see every transition in order, at the price of two rules:
// callbacks must return quickly, and they must not call back into the
// [Manager]. Panics inside a callback are recovered and logged; they
// never take down the session.
type StateCallback func(from, to ConnectionState)
