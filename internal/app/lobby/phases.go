package lobby

import "hzarena/internal/app/area"

// Phases of the timeline the Manager attaches to every area it creates.
const (
	PhaseWaiting    = "waiting"
	PhaseReadyCheck = "ready_check"
	PhaseCountdown  = "countdown"
	PhasePlaying    = "playing"
)

// Timeline returns the phase manager driving a, if the Manager attached one.
// Areas built outside the Manager have none.
func Timeline(a *area.Area) (*area.PhaseManager[string], bool) {
	pm, ok := a.Timeline().(*area.PhaseManager[string])
	return pm, ok
}

// attachTimeline starts a's timeline in the waiting phase.
func attachTimeline(a *area.Area) {
	area.NewPhaseManager[string](a).Advance(PhaseWaiting, 0, area.Quiet())
}
