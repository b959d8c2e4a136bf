/*
Package area contains the session/room concurrency engine.

This file defines the Room, a concurrent container of occupants keyed by unique
identity, and its broadcast mechanism. Broadcasts work on a point-in-time snapshot
of membership, so the room may change while messages are being delivered.
*/
package area

import (
	"sync"

	"github.com/rs/zerolog"

	"hzarena/internal/app/user"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/metrics"
)

// Room holds the occupants of an area or of a finer-grained sub-room.
type Room struct {
	// title of the room, unique within its registry.
	title string

	// occupants keyed by the owning user's identity.
	occupants map[user.Identity]*Occupant

	// mu protects the occupants map.
	mu sync.RWMutex

	metrics *metrics.Metrics

	// structured logger with room context.
	logger zerolog.Logger
}

// NewRoom creates an empty room.
func NewRoom(title string) *Room {
	return newRoom(title, nil)
}

func newRoom(title string, m *metrics.Metrics) *Room {
	return &Room{
		title:     title,
		occupants: make(map[user.Identity]*Occupant),
		metrics:   m,
		logger: logx.Logger().With().
			Str("room", title).
			Logger(),
	}
}

// Title returns the room title.
func (r *Room) Title() string {
	return r.title
}

// AddOrGetOccupant inserts o under its user's identity unless an occupant with
// that identity is already present, in which case the existing occupant is
// returned unchanged. The boolean reports whether o was inserted.
func (r *Room) AddOrGetOccupant(o *Occupant) (*Occupant, bool) {
	id := o.Identity()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.occupants[id]; ok {
		return existing, false
	}

	r.occupants[id] = o
	r.logger.Debug().
		Str("identity", id.String()).
		Int("total_occupants", len(r.occupants)).
		Msg("Occupant added to room.")

	return o, true
}

// DropOccupant removes and returns the occupant with identity id.
// Dropping an absent identity is not a failure; it returns false.
func (r *Room) DropOccupant(id user.Identity) (*Occupant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.occupants[id]
	if !ok {
		return nil, false
	}

	delete(r.occupants, id)
	r.logger.Debug().
		Str("identity", id.String()).
		Int("total_occupants", len(r.occupants)).
		Msg("Occupant dropped from room.")

	return o, true
}

// Occupant looks up the occupant with identity id.
func (r *Room) Occupant(id user.Identity) (*Occupant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.occupants[id]
	return o, ok
}

// OccupantCount returns the number of occupants.
func (r *Room) OccupantCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.occupants)
}

// Occupants returns a snapshot of the current occupants. The room may be
// mutated freely while the caller iterates the returned slice.
func (r *Room) Occupants() []*Occupant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]*Occupant, 0, len(r.occupants))
	for _, o := range r.occupants {
		snapshot = append(snapshot, o)
	}
	return snapshot
}

// Broadcast sends payload tagged msgType to every occupant not in exclude.
// A failed send is logged and does not stop delivery to the others.
func (r *Room) Broadcast(msgType string, payload any, exclude ...*Occupant) {
	failures := r.broadcast(msgType, payload, exclude)
	r.metrics.Broadcast(failures)
}

func (r *Room) broadcast(msgType string, payload any, exclude []*Occupant) int {
	failures := 0

	for _, o := range r.Occupants() {
		if containsOccupant(exclude, o) {
			continue
		}

		if err := o.User().Send(msgType, payload); err != nil {
			failures++
			r.logger.Warn().
				Err(err).
				Str("identity", o.Identity().String()).
				Str("msg_type", msgType).
				Msg("Failed to deliver broadcast to occupant.")
		}
	}

	return failures
}

func containsOccupant(set []*Occupant, o *Occupant) bool {
	for _, x := range set {
		if x == o {
			return true
		}
	}
	return false
}
