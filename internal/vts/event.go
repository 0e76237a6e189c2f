package vts

// EventKind identifies a connection event.
type EventKind int

// Connection events emitted on Client.Events.
const (
	EventConnected EventKind = iota
	EventDisconnected
	EventNewAuthToken
	EventOther
)

// String returns a lowercase name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventNewAuthToken:
		return "new_auth_token"
	case EventOther:
		return "other"
	default:
		return "unknown"
	}
}

// Event is one item of the client's event stream.
type Event struct {
	Kind EventKind
	// Token is set for EventNewAuthToken.
	Token string
	// MessageType is set for EventOther.
	MessageType string
	// Err is the read error that ended the connection, for EventDisconnected.
	Err error
}
