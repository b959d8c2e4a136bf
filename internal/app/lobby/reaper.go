package lobby

import (
	"context"
	"time"

	"hzarena/internal/app/user"
)

// Reap closes every idle area, then removes and disconnects every idle user that
// occupies no area. Each reaped user is closed exactly once even when Reap runs
// concurrently with itself. It returns the number of areas and users reaped.
func (m *Manager) Reap() (areas, users int) {
	for _, a := range m.Areas() {
		if !a.TimedOut() || !a.Exists() {
			continue
		}

		m.logger.Info().
			Str("area", a.Title()).
			Dur("idle", a.Idle()).
			Msg("Closing idle area.")
		a.Close(ReasonIdle)
		m.metrics.Reaped("area")
		areas++
	}

	for _, u := range m.Users() {
		if u.IsBot() || !u.TimedOut() {
			continue
		}
		if _, occupied := m.OccupiedArea(u.Identity()); occupied {
			continue
		}
		if !m.removeIdleUser(u.Identity(), u) {
			continue
		}

		m.logger.Info().
			Str("identity", u.Identity().String()).
			Dur("idle", u.Idle()).
			Msg("Disconnecting idle user.")
		u.Close(ReasonIdle)
		m.metrics.Reaped("user")
		users++
	}

	return areas, users
}

// Run reaps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", interval).Msg("Reaper loop started.")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Reaper loop stopped.")
			return
		case <-ticker.C:
			areas, users := m.Reap()
			if areas > 0 || users > 0 {
				m.logger.Info().Int("areas", areas).Int("users", users).Msg("Reaper pass finished.")
			}
		}
	}
}

// Start runs the reaper in the background at the configured interval until
// Shutdown is called or ctx is done.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Run(ctx, m.config.ReapInterval)
	}()
}

// Shutdown stops the reaper, closes every area and disconnects every user.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager...")

	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	for _, a := range m.Areas() {
		a.Close(ReasonShutdown)
	}

	m.mu.Lock()
	users := m.users
	m.users = make(map[user.Identity]*user.User)
	m.mu.Unlock()

	for _, u := range users {
		u.Close(ReasonShutdown)
	}
	m.metrics.SetUsers(0)

	m.logger.Info().Msg("Manager shutdown complete.")
}
