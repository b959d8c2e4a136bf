/*
Package user contains the identity and connection-binding model of a participant.

It defines the Unique Identity (name plus authentication source), the Connection
contract consumed from the transport layer, and the User, which binds the current
Connection to a durable identity and supports reconnect-and-resume.
*/
package user

import "fmt"

// AuthSource identifies where a user's identity was established.
type AuthSource string

const (
	// SourceGuest is an unauthenticated, client-chosen identity.
	SourceGuest AuthSource = "guest"

	// SourceRegistered is an identity verified against the account store.
	SourceRegistered AuthSource = "registered"

	// SourceBot is a server-side automated participant. Bots are never required
	// to answer response requests.
	SourceBot AuthSource = "bot"
)

// Valid reports whether s is one of the known sources.
func (s AuthSource) Valid() bool {
	switch s {
	case SourceGuest, SourceRegistered, SourceBot:
		return true
	}
	return false
}

// Identity is the (name, source) pair identifying a user across reconnects.
// It is comparable and used directly as a map key.
type Identity struct {
	Name   string     `json:"name"`
	Source AuthSource `json:"source"`
}

// NewIdentity returns the identity for name authenticated by source.
func NewIdentity(name string, source AuthSource) Identity {
	return Identity{Name: name, Source: source}
}

// String returns the fully qualified form "name@source".
func (id Identity) String() string {
	return fmt.Sprintf("%s@%s", id.Name, id.Source)
}

// IsZero reports whether id is the empty identity.
func (id Identity) IsZero() bool {
	return id.Name == "" && id.Source == ""
}
