/*
Package lobby contains the process-wide registries of users and areas.

This file defines the Manager, which logs users in (resuming an existing identity on
reconnect), creates and tracks areas, enforces one-area-at-a-time occupancy, and runs
the periodic reaper that expires idle areas and users.
*/
package lobby

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzarena/internal/app/area"
	"hzarena/internal/app/user"
	"hzarena/internal/configs"
	"hzarena/internal/pkg/activity"
	"hzarena/internal/pkg/errs"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/metrics"
	"hzarena/internal/pkg/randx"
)

// Close reasons sent to connections and areas the Manager shuts down.
const (
	ReasonIdle     = "idle"
	ReasonRemoved  = "removed"
	ReasonShutdown = "server shutting down"
)

// Manager coordinates every user and area of the process.
type Manager struct {
	// users stores every known user, keyed by unique identity.
	users map[user.Identity]*user.User

	// areas stores every open area, keyed by title.
	areas map[string]*area.Area

	// config holds the application's read-only configuration settings.
	config *configs.AppConfig

	// mu protects the users and areas maps.
	mu sync.RWMutex

	// joinMu serialises the occupancy check with the join that follows it.
	joinMu sync.Mutex

	metrics *metrics.Metrics

	// now is the clock handed to every activity tracker.
	now func() time.Time

	// wg waits for the reaper loop during shutdown.
	wg     sync.WaitGroup
	cancel context.CancelFunc

	// structured logger with Manager context.
	logger zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithClock replaces the clock used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

// NewManager constructs and returns a new Manager instance.
func NewManager(cfg *configs.AppConfig, opts ...Option) *Manager {
	m := &Manager{
		users:  make(map[user.Identity]*user.User),
		areas:  make(map[string]*area.Area),
		config: cfg,
		now:    time.Now,
		logger: logx.Logger().With().Str("component", "Manager").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() *configs.AppConfig {
	return m.config
}

// Metrics returns the Manager's instruments, which may be nil.
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// LookupUser returns the user registered under id.
func (m *Manager) LookupUser(id user.Identity) (*user.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	return u, ok
}

// Users returns a snapshot of every registered user.
func (m *Manager) Users() []*user.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*user.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users
}

// Login binds conn to the user registered under id, creating the user on first
// login. When the identity already exists the previous connection is replaced
// and closed, and resumed is true; any area occupancy carries over.
func (m *Manager) Login(id user.Identity, conn user.Connection) (u *user.User, resumed bool) {
	m.mu.Lock()
	if existing, ok := m.users[id]; ok {
		// touched under mu so a concurrent Reap sees the resume
		existing.Touch()
		m.mu.Unlock()

		existing.SwapConnection(conn)
		m.logger.Info().
			Str("identity", id.String()).
			Str("address", conn.Address()).
			Msg("User resumed session.")
		return existing, true
	}

	u = user.New(id, conn, m.userTrackerOpts()...)
	m.users[id] = u
	total := len(m.users)
	m.mu.Unlock()

	m.metrics.SetUsers(total)
	m.logger.Info().
		Str("identity", id.String()).
		Str("address", conn.Address()).
		Int("total_users", total).
		Msg("User logged in.")

	return u, false
}

// AddBot registers a server-side participant that has no connection.
// An existing bot with the same name is returned unchanged.
func (m *Manager) AddBot(name string) *user.User {
	id := user.NewIdentity(name, user.SourceBot)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[id]; ok {
		return existing
	}

	u := user.New(id, nil)
	m.users[id] = u
	m.metrics.SetUsers(len(m.users))
	return u
}

// Disconnect marks u logged out if conn is still its current connection and
// stops conn from observing any area. The user stays registered so a later
// Login resumes it. It reports whether u was logged out.
func (m *Manager) Disconnect(u *user.User, conn user.Connection) bool {
	for _, a := range m.Areas() {
		a.RemoveObserver(conn)
	}

	if !u.DetachConnection(conn) {
		return false
	}

	m.logger.Info().
		Str("identity", u.Identity().String()).
		Msg("User disconnected. Session kept for resume.")
	return true
}

// RemoveUser forgets the user registered under id and drops it from any area
// it occupies. Removing an unknown identity is a no-op.
func (m *Manager) RemoveUser(id user.Identity) (*user.User, bool) {
	m.mu.Lock()
	u, ok := m.users[id]
	if ok {
		delete(m.users, id)
	}
	total := len(m.users)
	m.mu.Unlock()

	if !ok {
		return nil, false
	}

	if o, occupied := m.OccupiedArea(id); occupied {
		o.Area().DropOccupant(id)
	}

	m.metrics.SetUsers(total)
	m.logger.Info().Str("identity", id.String()).Msg("User removed.")
	return u, true
}

// removeIdleUser deletes id only while it still maps to u and u is still idle.
func (m *Manager) removeIdleUser(id user.Identity, u *user.User) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.users[id] != u || !u.TimedOut() {
		return false
	}
	delete(m.users, id)
	m.metrics.SetUsers(len(m.users))
	return true
}

// LookupArea returns the open area titled title.
func (m *Manager) LookupArea(title string) (*area.Area, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.areas[title]
	return a, ok
}

// Areas returns a snapshot of every open area, ordered by title.
func (m *Manager) Areas() []*area.Area {
	m.mu.RLock()
	areas := make([]*area.Area, 0, len(m.areas))
	for _, a := range m.areas {
		areas = append(areas, a)
	}
	m.mu.RUnlock()

	slices.SortFunc(areas, func(x, y *area.Area) int {
		return strings.Compare(x.Title(), y.Title())
	})
	return areas
}

// CreateArea registers a new area. It fails with ErrAreaExists if the title is
// taken and ErrAreaTitleInvalid if the title is malformed. opts are applied after
// the Manager's defaults, so callers may override capacity or idle timeout.
func (m *Manager) CreateArea(title string, opts ...area.Option) (*area.Area, *errs.CustomError) {
	if !randx.IsValidAreaTitle(title) {
		return nil, errs.NewError(errs.ErrAreaTitleInvalid)
	}

	m.mu.Lock()
	if _, ok := m.areas[title]; ok {
		m.mu.Unlock()
		m.logger.Warn().Str("area", title).Msg("Attempted to create existing area.")
		return nil, errs.NewError(errs.ErrAreaExists)
	}

	a := m.newArea(title, opts)
	m.areas[title] = a
	total := len(m.areas)
	m.mu.Unlock()

	m.metrics.SetAreas(total)
	m.logger.Info().
		Str("area", title).
		Int("max_occupants", a.MaxOccupants()).
		Int("total_areas", total).
		Msg("New area created.")

	return a, nil
}

// AddOrGetArea returns the area titled title, creating it with opts if absent.
// The boolean reports whether the area was created.
func (m *Manager) AddOrGetArea(title string, opts ...area.Option) (*area.Area, bool) {
	m.mu.Lock()
	if a, ok := m.areas[title]; ok {
		m.mu.Unlock()
		return a, false
	}

	a := m.newArea(title, opts)
	m.areas[title] = a
	total := len(m.areas)
	m.mu.Unlock()

	m.metrics.SetAreas(total)
	return a, true
}

func (m *Manager) newArea(title string, opts []area.Option) *area.Area {
	defaults := []area.Option{
		area.WithMaxOccupants(m.config.AreaMaxOccupants),
		area.WithActivity(activity.WithTimeout(m.config.AreaIdleTimeout), activity.WithClock(m.now)),
		area.WithMetrics(m.metrics),
		area.WithCloseHook(m.deleteArea),
	}
	a := area.New(title, append(defaults, opts...)...)
	attachTimeline(a)
	return a
}

// deleteArea runs as the close hook of every registered area.
func (m *Manager) deleteArea(a *area.Area) {
	m.mu.Lock()
	if m.areas[a.Title()] != a {
		m.mu.Unlock()
		return
	}
	delete(m.areas, a.Title())
	total := len(m.areas)
	m.mu.Unlock()

	m.metrics.SetAreas(total)
	m.logger.Info().Str("area", a.Title()).Msg("Area successfully removed.")
}

// RemoveArea closes the area titled title, which also unregisters it.
func (m *Manager) RemoveArea(title string) bool {
	a, ok := m.LookupArea(title)
	if !ok {
		return false
	}
	a.Close(ReasonRemoved)
	return true
}

// OccupiedArea returns u's occupant record in whichever area it occupies.
func (m *Manager) OccupiedArea(id user.Identity) (*area.Occupant, bool) {
	for _, a := range m.Areas() {
		if o, ok := a.Occupant(id); ok {
			return o, true
		}
	}
	return nil, false
}

// JoinArea admits u into the area titled title. A user occupies at most one area:
// joining a second one fails with ErrAlreadyOccupying until it leaves the first.
// Rejoining the area it already occupies succeeds.
func (m *Manager) JoinArea(u *user.User, title, password string) (*area.Occupant, *errs.CustomError) {
	a, ok := m.LookupArea(title)
	if !ok {
		return nil, errs.NewError(errs.ErrAreaNotFound)
	}

	m.joinMu.Lock()
	defer m.joinMu.Unlock()

	if o, occupied := m.OccupiedArea(u.Identity()); occupied && o.Area() != a {
		return nil, errs.NewError(errs.ErrAlreadyOccupying)
	}

	o, result := a.Join(u, password)
	if customErr := joinError(result); customErr != nil {
		m.logger.Debug().
			Str("identity", u.Identity().String()).
			Str("area", title).
			Str("result", result.String()).
			Msg("Join refused.")
		return nil, customErr
	}

	u.Touch()
	return o, nil
}

// LeaveArea drops u from the area it occupies and returns that area.
func (m *Manager) LeaveArea(u *user.User) (*area.Area, bool) {
	o, ok := m.OccupiedArea(u.Identity())
	if !ok {
		return nil, false
	}

	a := o.Area()
	if _, dropped := a.DropOccupant(u.Identity()); !dropped {
		return nil, false
	}
	return a, true
}

func joinError(r area.JoinResult) *errs.CustomError {
	switch r {
	case area.Joined, area.Rejoined:
		return nil
	case area.JoinClosed:
		return errs.NewError(errs.ErrAreaClosed)
	case area.JoinBadPassword:
		return errs.NewError(errs.ErrAreaPassword)
	case area.JoinFull:
		return errs.NewError(errs.ErrAreaFull)
	case area.JoinGuestsNotAllowed:
		return errs.NewError(errs.ErrGuestNotAllowed)
	}
	return errs.NewError(errs.ErrUnknown)
}

func (m *Manager) userTrackerOpts() []activity.Option {
	return []activity.Option{
		activity.WithTimeout(m.config.UserIdleTimeout),
		activity.WithClock(m.now),
	}
}
