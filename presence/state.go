package presence

// ConnectionState represents the current state of the presence socket.
type ConnectionState int

const (
	// StateDisconnected means the client is not connected.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the client is establishing a connection.
	StateConnecting

	// StateOpen means the connection is established and intents may be sent.
	StateOpen

	// StateReconnecting means the client is attempting to reconnect after an
	// unexpected close.
	StateReconnecting

	// StateFailed means reconnect attempts were exhausted. The UI should show
	// a persistent "presence unavailable" indicator.
	StateFailed

	// StateClosed means the client has been explicitly disconnected.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the state change
}
