package state

// Phase is the connection and authorization phase of the VTube Studio link.
type Phase int

// Exactly one phase holds at a time.
const (
	Disconnected Phase = iota
	Connected
	NotAuthorized
	Authorized
)

// String returns the phase's wire name.
func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "DISCONNECTED"
	case Connected:
		return "CONNECTED"
	case NotAuthorized:
		return "NOT_AUTHORIZED"
	case Authorized:
		return "AUTHORIZED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Reachable reports whether the remote is connected, authorized or not.
func (p Phase) Reachable() bool {
	return p != Disconnected
}
