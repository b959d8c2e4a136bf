package area

import "errors"

// Invariant violations. The core panics with these; they indicate a bug in the
// embedding application rather than a recoverable condition.
var (
	// ErrAreaClosed is raised when an area is mutated after it stopped existing.
	ErrAreaClosed = errors.New("area: mutation after close")

	// ErrTimelineShutdown is raised when a phase is scheduled after Shutdown.
	ErrTimelineShutdown = errors.New("area: phase scheduled after timeline shutdown")

	// ErrTimelineAttached is raised when a second phase manager is attached to an area.
	ErrTimelineAttached = errors.New("area: timeline already attached")

	// ErrResurrect is raised when a closed area is marked as existing again.
	ErrResurrect = errors.New("area: cannot resurrect a closed area")

	// ErrForeignOccupant is raised when an occupant built for one area is inserted into another.
	ErrForeignOccupant = errors.New("area: occupant belongs to another area")
)

// ErrSequenceAborted resolves a phase sequence whose current step was
// superseded by another advance or cancelled by shutdown.
var ErrSequenceAborted = errors.New("area: phase sequence aborted")
