package user

// Status is the liveness state reported by a Connection.
type Status int

const (
	StatusDisconnected Status = iota
	StatusError
	StatusOK
	StatusAwaitingLogin
	StatusAwaitingPassword
	StatusClosing
)

var statusNames = [...]string{
	StatusDisconnected:     "disconnected",
	StatusError:            "error",
	StatusOK:               "ok",
	StatusAwaitingLogin:    "awaiting-login",
	StatusAwaitingPassword: "awaiting-password",
	StatusClosing:          "closing",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Live reports whether a connection in this state can still receive messages.
func (s Status) Live() bool {
	switch s {
	case StatusOK, StatusAwaitingLogin, StatusAwaitingPassword:
		return true
	}
	return false
}

// Connection is an opaque, stateful handle to a remote peer.
// It is owned by the transport layer; the core never constructs or destroys one.
type Connection interface {
	// Send delivers payload tagged with msgType to the peer.
	Send(msgType string, payload any) error

	// Status reports the current liveness of the connection.
	Status() Status

	// Address returns the remote address of the peer.
	Address() string

	// Close terminates the connection, telling the peer why.
	Close(reason string)

	// SameOrigin reports whether other originates from the same peer.
	SameOrigin(other Connection) bool
}
