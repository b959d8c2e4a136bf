package area

import (
	"sync"

	"hzarena/internal/app/user"
)

// Occupant is a user's membership record within an area.
type Occupant struct {
	user *user.User

	// area is a non-owning back-reference; nil for an occupant of a standalone room.
	area *Area

	mu sync.RWMutex

	// room is the sub-room the occupant is in, or nil for the area itself.
	room *Room

	away     bool
	deafened bool

	// responses maps a response type to the latest answer; nil means no answer.
	responses map[string]any
}

// NewOccupant binds u to a. The area may be nil for a standalone room.
func NewOccupant(u *user.User, a *Area) *Occupant {
	return &Occupant{
		user:      u,
		area:      a,
		responses: make(map[string]any),
	}
}

// User returns the user behind the occupant.
func (o *Occupant) User() *user.User {
	return o.user
}

// Identity returns the identity of the user behind the occupant.
func (o *Occupant) Identity() user.Identity {
	return o.user.Identity()
}

// Area returns the area the occupant was created for.
func (o *Occupant) Area() *Area {
	return o.area
}

// Room returns the sub-room the occupant is in, falling back to the area's own room.
func (o *Occupant) Room() *Room {
	o.mu.RLock()
	r := o.room
	o.mu.RUnlock()

	if r == nil && o.area != nil {
		return o.area.Room
	}
	return r
}

// EnterRoom moves the occupant into sub-room r, leaving any previous sub-room.
// Passing nil returns the occupant to the area itself.
func (o *Occupant) EnterRoom(r *Room) {
	o.mu.Lock()
	prev := o.room
	o.room = r
	o.mu.Unlock()

	if prev != nil && prev != r {
		prev.DropOccupant(o.Identity())
	}
	if r != nil {
		r.AddOrGetOccupant(o)
	}
}

// leaveRoom drops the occupant from its sub-room, if any.
func (o *Occupant) leaveRoom() {
	o.mu.Lock()
	prev := o.room
	o.room = nil
	o.mu.Unlock()

	if prev != nil {
		prev.DropOccupant(o.Identity())
	}
}

// SetResponse stores v as the answer for responseType. A nil v means "no answer".
// Storing a non-nil answer makes the area's collector re-check completion for
// that type on the calling goroutine.
func (o *Occupant) SetResponse(responseType string, v any) {
	o.mu.Lock()
	o.responses[responseType] = v
	o.mu.Unlock()

	if v == nil || o.area == nil {
		return
	}

	o.area.Touch()
	o.area.responses.check(responseType)
}

// Response returns the stored answer for responseType and whether one is present.
func (o *Occupant) Response(responseType string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	v := o.responses[responseType]
	return v, v != nil
}

func (o *Occupant) clearResponse(responseType string) {
	o.mu.Lock()
	o.responses[responseType] = nil
	o.mu.Unlock()
}

// IsAway reports whether the user is logged out or explicitly marked away.
func (o *Occupant) IsAway() bool {
	if !o.user.LoggedIn() {
		return true
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.away
}

// SetAway marks the occupant away or back.
func (o *Occupant) SetAway(away bool) {
	o.mu.Lock()
	o.away = away
	o.mu.Unlock()
}

// Deafened occupants do not receive chat broadcasts.
func (o *Occupant) Deafened() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.deafened
}

// SetDeafened controls whether audible broadcasts skip the occupant.
func (o *Occupant) SetDeafened(deafened bool) {
	o.mu.Lock()
	o.deafened = deafened
	o.mu.Unlock()
}

// DisplayName renders the bare name unless another occupant of the same area
// shares it under a different auth source, in which case it renders "name@source".
// It is computed on demand because membership changes invalidate it.
func (o *Occupant) DisplayName() string {
	id := o.Identity()
	if o.area == nil {
		return id.Name
	}

	for _, other := range o.area.Occupants() {
		otherID := other.Identity()
		if other != o && otherID.Name == id.Name && otherID.Source != id.Source {
			return id.String()
		}
	}
	return id.Name
}
