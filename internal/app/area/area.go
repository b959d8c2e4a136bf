package area

import (
	"slices"
	"sync"
	"time"

	"hzarena/internal/app/user"
	"hzarena/internal/pkg/activity"
	"hzarena/internal/pkg/metrics"
)

// JoinResult is the outcome of a policy join. Rejections are expected,
// recoverable conditions and are returned as values.
type JoinResult int

const (
	Joined JoinResult = iota
	Rejoined
	JoinClosed
	JoinBadPassword
	JoinFull
	JoinGuestsNotAllowed
)

func (r JoinResult) String() string {
	switch r {
	case Joined:
		return "joined"
	case Rejoined:
		return "rejoined"
	case JoinClosed:
		return "closed"
	case JoinBadPassword:
		return "bad_password"
	case JoinFull:
		return "full"
	case JoinGuestsNotAllowed:
		return "guests_not_allowed"
	}
	return "unknown"
}

// OK reports whether the user is an occupant after the join.
func (r JoinResult) OK() bool {
	return r == Joined || r == Rejoined
}

// Timeline is the part of a phase manager the area drives directly.
type Timeline interface {
	Shutdown()
}

// Area is a Room with access control, ownership, observers, a phase timeline
// and a response collector. It is the unit of a game session or chat room.
type Area struct {
	*Room

	// mu protects every field below it, and serialises joins against closing.
	mu sync.RWMutex

	password      string
	creator       *user.User
	options       any
	maxOccupants  int
	guestsAllowed bool

	// exists turns false exactly once, when the area is closed.
	exists bool

	// observers watch the area without occupying it.
	observers []user.Connection

	// rooms are the finer-grained sub-rooms keyed by title.
	rooms map[string]*Room

	timeline Timeline
	onClose  []func(*Area)

	activity  *activity.Tracker
	responses *Collector
}

// Option configures an Area.
type Option func(*Area)

// WithPassword requires password on Join. An empty password leaves the area open.
func WithPassword(password string) Option {
	return func(a *Area) { a.password = password }
}

// WithCreator records the user that created the area.
func WithCreator(u *user.User) Option {
	return func(a *Area) { a.creator = u }
}

// WithOptions attaches an application-defined configuration blob.
func WithOptions(options any) Option {
	return func(a *Area) { a.options = options }
}

// WithMaxOccupants caps the number of occupants Join admits. Zero means unlimited.
func WithMaxOccupants(n int) Option {
	return func(a *Area) { a.maxOccupants = n }
}

// WithGuests controls whether guest identities may join. Guests are allowed by default.
func WithGuests(allowed bool) Option {
	return func(a *Area) { a.guestsAllowed = allowed }
}

// WithActivity configures the area's idle tracker.
func WithActivity(opts ...activity.Option) Option {
	return func(a *Area) { a.activity = activity.New(opts...) }
}

// WithMetrics reports room sizes and broadcast failures to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Area) { a.Room.metrics = m }
}

// WithCloseHook registers fn to run once the area stops existing.
func WithCloseHook(fn func(*Area)) Option {
	return func(a *Area) { a.onClose = append(a.onClose, fn) }
}

// New creates an existing, empty area titled title.
func New(title string, opts ...Option) *Area {
	a := &Area{
		Room:          newRoom(title, nil),
		guestsAllowed: true,
		exists:        true,
		rooms:         make(map[string]*Room),
		activity:      activity.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.responses = newCollector(a)

	return a
}

// Exists reports whether the area is still open.
func (a *Area) Exists() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.exists
}

// OkPassword reports whether pwd opens the area. An area without a password
// accepts anything.
func (a *Area) OkPassword(pwd string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.password == "" || a.password == pwd
}

// SetPassword changes the join password. An empty string removes it.
func (a *Area) SetPassword(pwd string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mustExistLocked()
	a.password = pwd
}

// HasPassword reports whether a password gate is configured.
func (a *Area) HasPassword() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.password != ""
}

// Creator returns the user that created the area, or nil for server-created areas.
func (a *Area) Creator() *user.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.creator
}

// Options returns the blob attached with WithOptions.
func (a *Area) Options() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.options
}

// GuestsAllowed reports whether guest identities may join.
func (a *Area) GuestsAllowed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.guestsAllowed
}

// MaxOccupants returns the occupant cap. Zero means unlimited.
func (a *Area) MaxOccupants() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.maxOccupants
}

// Responses returns the area's response collector.
func (a *Area) Responses() *Collector {
	return a.responses
}

// Timeline returns the attached phase manager, or nil.
func (a *Area) Timeline() Timeline {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.timeline
}

func (a *Area) attachTimeline(t Timeline) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.mustExistLocked()
	if a.timeline != nil {
		panic(ErrTimelineAttached)
	}
	a.timeline = t
}

// Join admits u after checking the area's policies. A user already in the area
// gets its existing occupant back with Rejoined.
func (a *Area) Join(u *user.User, password string) (*Occupant, JoinResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.exists {
		return nil, JoinClosed
	}

	if existing, ok := a.Room.Occupant(u.Identity()); ok {
		a.activity.Touch()
		return existing, Rejoined
	}

	if a.password != "" && a.password != password {
		return nil, JoinBadPassword
	}
	if !a.guestsAllowed && u.Identity().Source == user.SourceGuest {
		return nil, JoinGuestsNotAllowed
	}
	if a.maxOccupants > 0 && a.Room.OccupantCount() >= a.maxOccupants {
		return nil, JoinFull
	}

	o, _ := a.admitLocked(NewOccupant(u, a))
	return o, Joined
}

// AddOrGetUser inserts u as an occupant without policy checks, returning the
// existing occupant on rejoin. It panics with ErrAreaClosed on a closed area.
func (a *Area) AddOrGetUser(u *user.User) (*Occupant, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.mustExistLocked()
	return a.admitLocked(NewOccupant(u, a))
}

// AddOrGetOccupant inserts o into the area's main room, returning the existing
// occupant when its identity is already present. It panics with ErrAreaClosed
// on a closed area and with ErrForeignOccupant when o was built for another area.
func (a *Area) AddOrGetOccupant(o *Occupant) (*Occupant, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.mustExistLocked()
	if o.Area() != a {
		panic(ErrForeignOccupant)
	}
	return a.admitLocked(o)
}

func (a *Area) admitLocked(o *Occupant) (*Occupant, bool) {
	o, added := a.Room.AddOrGetOccupant(o)

	// an occupant's connection never also observes the area
	if conn := o.User().Conn(); conn != nil {
		a.removeObserverLocked(func(obs user.Connection) bool {
			return obs == conn || obs.SameOrigin(conn)
		})
	}

	a.activity.Touch()
	return o, added
}

// DropOccupant removes the occupant with identity id from the area and from
// any sub-room it is in. Dropping an absent identity is a no-op.
func (a *Area) DropOccupant(id user.Identity) (*Occupant, bool) {
	o, ok := a.Room.DropOccupant(id)
	if !ok {
		return nil, false
	}

	o.leaveRoom()
	a.activity.Touch()

	// the leaver may have been the last one a request was waiting for
	a.responses.checkAll()
	return o, true
}

// NewRoom creates a sub-room of the area, or returns the existing one with that title.
func (a *Area) NewRoom(title string) *Room {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.mustExistLocked()
	if r, ok := a.rooms[title]; ok {
		return r
	}

	r := newRoom(title, a.Room.metrics)
	a.rooms[title] = r
	return r
}

// SubRoom looks up a sub-room by title.
func (a *Area) SubRoom(title string) (*Room, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.rooms[title]
	return r, ok
}

// RoomTitles returns the titles of the area's sub-rooms in sorted order.
func (a *Area) RoomTitles() []string {
	a.mu.RLock()
	titles := make([]string, 0, len(a.rooms))
	for title := range a.rooms {
		titles = append(titles, title)
	}
	a.mu.RUnlock()

	slices.Sort(titles)
	return titles
}

// AddObserver lets conn watch the area. It is rejected when conn belongs to an
// occupant of the area or the area is closed.
func (a *Area) AddObserver(conn user.Connection) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.exists {
		return false
	}

	for _, o := range a.Room.Occupants() {
		if oc := o.User().Conn(); oc != nil && (oc == conn || oc.SameOrigin(conn)) {
			return false
		}
	}

	for _, obs := range a.observers {
		if obs == conn {
			return true
		}
	}

	a.observers = append(a.observers, conn)
	return true
}

// RemoveObserver stops conn from watching the area. Removing an unknown
// connection is a no-op.
func (a *Area) RemoveObserver(conn user.Connection) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.removeObserverLocked(func(obs user.Connection) bool { return obs == conn }) > 0
}

// ObserverCount returns the number of observers, live or not.
func (a *Area) ObserverCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.observers)
}

func (a *Area) removeObserverLocked(match func(user.Connection) bool) int {
	kept := a.observers[:0]
	removed := 0
	for _, obs := range a.observers {
		if match(obs) {
			removed++
			continue
		}
		kept = append(kept, obs)
	}
	clear(a.observers[len(kept):])
	a.observers = kept
	return removed
}

// liveObservers prunes disconnected observers and returns a snapshot of the rest.
func (a *Area) liveObservers() []user.Connection {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.removeObserverLocked(func(obs user.Connection) bool { return !obs.Status().Live() })
	return append([]user.Connection(nil), a.observers...)
}

// Broadcast notifies every occupant not in exclude, then every live observer.
func (a *Area) Broadcast(msgType string, payload any, exclude ...*Occupant) {
	failures := a.Room.broadcast(msgType, payload, exclude)

	for _, obs := range a.liveObservers() {
		if err := obs.Send(msgType, payload); err != nil {
			failures++
			a.Room.logger.Warn().
				Err(err).
				Str("observer", obs.Address()).
				Str("msg_type", msgType).
				Msg("Failed to deliver broadcast to observer.")
		}
	}

	a.Room.metrics.Broadcast(failures)
}

// BroadcastAudible is Broadcast that also skips deafened occupants. It is used
// for occupant chatter rather than system notices.
func (a *Area) BroadcastAudible(msgType string, payload any, exclude ...*Occupant) {
	skip := append([]*Occupant(nil), exclude...)
	for _, o := range a.Occupants() {
		if o.Deafened() {
			skip = append(skip, o)
		}
	}
	a.Broadcast(msgType, payload, skip...)
}

// Touch records activity in the area.
func (a *Area) Touch() {
	a.activity.Touch()
}

// TimedOut reports whether the area has been idle beyond its timeout.
func (a *Area) TimedOut() bool {
	return a.activity.TimedOut()
}

// Idle returns the time since the area's last activity.
func (a *Area) Idle() time.Duration {
	return a.activity.Idle()
}

// Close notifies occupants and observers, then marks the area as gone.
func (a *Area) Close(reason string) {
	if !a.Exists() {
		return
	}

	a.Broadcast(MsgAreaClosed, AreaClosedPayload{Area: a.Title(), Reason: reason})
	a.SetExistence(false)
}

// SetExistence(false) is the area's terminal transition. It is idempotent: the
// first call shuts down the timeline, abandons pending response requests,
// forgets observers and runs close hooks. Setting a closed area back to true panics.
func (a *Area) SetExistence(exists bool) {
	a.mu.Lock()
	if exists {
		closed := !a.exists
		a.mu.Unlock()
		if closed {
			panic(ErrResurrect)
		}
		return
	}

	if !a.exists {
		a.mu.Unlock()
		return
	}

	a.exists = false
	a.observers = nil
	timeline := a.timeline
	hooks := a.onClose
	a.onClose = nil
	a.mu.Unlock()

	a.Room.logger.Info().Msg("Area closed.")

	if timeline != nil {
		timeline.Shutdown()
	}
	a.responses.abandonAll()

	for _, hook := range hooks {
		hook(a)
	}
}

func (a *Area) mustExistLocked() {
	if !a.exists {
		panic(ErrAreaClosed)
	}
}
