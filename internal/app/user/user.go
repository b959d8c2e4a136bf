package user

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzarena/internal/pkg/activity"
	"hzarena/internal/pkg/logx"
)

// ReasonSessionReplaced is the close reason sent to a connection that was swapped
// out because the same identity reconnected.
const ReasonSessionReplaced = "Session replaced by new connection. Check other tabs."

// ErrNoConnection is returned by Send when the user has no current connection.
var ErrNoConnection = errors.New("user has no connection")

// User binds the current Connection to a durable identity.
type User struct {
	identity Identity

	// mu guards conn and loggedIn. All reads of the current connection go
	// through Conn; callers never keep a copy across operations.
	mu       sync.RWMutex
	conn     Connection
	loggedIn bool

	activity *activity.Tracker

	logger zerolog.Logger
}

// New creates a logged-in User for id bound to conn.
func New(id Identity, conn Connection, trackerOpts ...activity.Option) *User {
	return &User{
		identity: id,
		conn:     conn,
		loggedIn: true,
		activity: activity.New(trackerOpts...),
		logger: logx.Logger().With().
			Str("identity", id.String()).
			Logger(),
	}
}

// Identity returns the user's unique identity.
func (u *User) Identity() Identity {
	return u.identity
}

// Name returns the bare display name.
func (u *User) Name() string {
	return u.identity.Name
}

// IsBot reports whether the user is an automated participant.
func (u *User) IsBot() bool {
	return u.identity.Source == SourceBot
}

// Conn returns the current connection, which may be nil.
func (u *User) Conn() Connection {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.conn
}

// Send delivers a message through the current connection.
// A send racing a swap may reach the outgoing connection.
func (u *User) Send(msgType string, payload any) error {
	conn := u.Conn()
	if conn == nil {
		return ErrNoConnection
	}
	return conn.Send(msgType, payload)
}

// SwapConnection substitutes next for the current connection and marks the user
// logged in. The previous connection, if any and distinct from next, is closed
// with ReasonSessionReplaced. It returns the previous connection.
func (u *User) SwapConnection(next Connection) Connection {
	u.mu.Lock()
	prev := u.conn
	u.conn = next
	u.loggedIn = true
	u.mu.Unlock()

	u.activity.Touch()

	if prev != nil && prev != next {
		u.logger.Info().
			Str("old_address", prev.Address()).
			Msg("Connection replaced by reconnect. Closing previous connection.")
		prev.Close(ReasonSessionReplaced)
	}
	return prev
}

// DetachConnection marks the user logged out if conn is still the current
// connection. It reports whether the user was detached; a stale connection that
// was already swapped out leaves the user untouched.
func (u *User) DetachConnection(conn Connection) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.conn != conn {
		return false
	}
	u.loggedIn = false
	return true
}

// LoggedIn reports whether the user currently holds a live session.
func (u *User) LoggedIn() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.loggedIn
}

// SetLoggedIn updates the login state.
func (u *User) SetLoggedIn(loggedIn bool) {
	u.mu.Lock()
	u.loggedIn = loggedIn
	u.mu.Unlock()
}

// Touch records activity from the user.
func (u *User) Touch() {
	u.activity.Touch()
}

// Idle returns the time since the user's last activity.
func (u *User) Idle() time.Duration {
	return u.activity.Idle()
}

// TimedOut reports whether the user has been idle beyond its timeout.
func (u *User) TimedOut() bool {
	return u.activity.TimedOut()
}

// Close closes the current connection with reason and marks the user logged out.
func (u *User) Close(reason string) {
	u.mu.Lock()
	conn := u.conn
	u.loggedIn = false
	u.mu.Unlock()

	if conn != nil {
		conn.Close(reason)
	}
}

// Logger returns the user's contextual logger.
func (u *User) Logger() *zerolog.Logger {
	return &u.logger
}
