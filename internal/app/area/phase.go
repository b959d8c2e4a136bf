package area

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzarena/internal/pkg/future"
)

// Outcome is how a phase ended.
type Outcome int

const (
	// OutcomeElapsed means the phase ran for its full duration.
	OutcomeElapsed Outcome = iota + 1

	// OutcomeInterrupted means the phase ended early, either through Interrupt
	// or because another Advance superseded it.
	OutcomeInterrupted

	// OutcomeCancelled means the timeline was shut down while the phase was pending.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeElapsed:
		return "elapsed"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Elapsed reports whether the phase timed out naturally.
func (o Outcome) Elapsed() bool {
	return o == OutcomeElapsed
}

// AdvanceOption configures a single Advance.
type AdvanceOption func(*advanceConfig)

type advanceConfig struct {
	quiet   bool
	abandon bool
	then    []func()
	onAbort func()
}

// Quiet suppresses the phase broadcasts for this phase.
func Quiet() AdvanceOption {
	return func(c *advanceConfig) { c.quiet = true }
}

// AbandonResponses resolves every response request pending in the area as
// abandoned when the phase starts. Without it requests outlive phase changes.
func AbandonResponses() AdvanceOption {
	return func(c *advanceConfig) { c.abandon = true }
}

// Then runs actions on the timeline worker once the phase elapses or is
// interrupted. They do not run when the phase is superseded or cancelled.
func Then(actions ...func()) AdvanceOption {
	return func(c *advanceConfig) { c.then = append(c.then, actions...) }
}

// Step is one entry of a phase sequence.
type Step[P comparable] struct {
	Phase    P
	Duration time.Duration
	Quiet    bool

	// Action runs after the phase ends; a non-nil error aborts the sequence.
	Action func() error
}

type phaseRun struct {
	gen     uint64
	future  *future.Future[Outcome]
	quiet   bool
	then    []func()
	onAbort func()
}

// PhaseManager drives one area through application-defined phases. Each manager
// owns its timer and a worker goroutine that resolves phases and runs follow-up
// actions in order, so one area's timeline never blocks another's.
//
// Advance, Pause, Resume and Interrupt expect a single logical driver per area.
type PhaseManager[P comparable] struct {
	area *Area

	mu        sync.Mutex
	phase     P
	start     time.Time
	duration  time.Duration
	paused    bool
	remaining time.Duration
	timer     *time.Timer
	gen       uint64
	current   *phaseRun
	shutdown  bool

	// qmu guards queue; wake signals the worker that jobs are waiting.
	qmu   sync.Mutex
	queue []func()
	wake  chan struct{}
	stop  chan struct{}

	logger zerolog.Logger
}

// NewPhaseManager attaches a phase manager to a and starts its worker.
// An area has at most one; attaching a second panics with ErrTimelineAttached.
func NewPhaseManager[P comparable](a *Area) *PhaseManager[P] {
	m := &PhaseManager[P]{
		area: a,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		logger: a.Room.logger.With().
			Str("component", "PhaseManager").
			Logger(),
	}

	a.attachTimeline(m)
	go m.work()

	return m
}

// Phase returns the current phase tag.
func (m *PhaseManager[P]) Phase() P {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Paused reports whether the current phase timer is paused.
func (m *PhaseManager[P]) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Active reports whether a phase is pending completion.
func (m *PhaseManager[P]) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Remaining returns how long the current phase has left.
func (m *PhaseManager[P]) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked()
}

func (m *PhaseManager[P]) remainingLocked() time.Duration {
	if m.current == nil {
		return 0
	}
	if m.paused {
		return m.remaining
	}
	return max(m.duration-time.Since(m.start), 0)
}

// Advance ends the pending phase, records phase as current and schedules a
// one-shot timer for d. The returned future resolves OutcomeElapsed when d
// passes, OutcomeInterrupted if the phase ends early and OutcomeCancelled on
// shutdown. With d <= 0 the phase is set synchronously without a timer and the
// future resolves OutcomeElapsed on the worker, after any superseded phase.
// Advancing after Shutdown panics with ErrTimelineShutdown.
func (m *PhaseManager[P]) Advance(phase P, d time.Duration, opts ...AdvanceOption) *future.Future[Outcome] {
	cfg := advanceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, ok := m.advance(phase, d, cfg)
	if !ok {
		panic(ErrTimelineShutdown)
	}
	return f
}

// TryAdvance is Advance for drivers that may race the area closing: after
// Shutdown it reports false instead of panicking.
func (m *PhaseManager[P]) TryAdvance(phase P, d time.Duration, opts ...AdvanceOption) (*future.Future[Outcome], bool) {
	cfg := advanceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return m.advance(phase, d, cfg)
}

func (m *PhaseManager[P]) advance(phase P, d time.Duration, cfg advanceConfig) (*future.Future[Outcome], bool) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, false
	}

	m.stopTimerLocked()
	if prev := m.current; prev != nil {
		// queued before the next timer exists, so it resolves first
		m.post(func() {
			prev.future.Resolve(OutcomeInterrupted)
			if prev.onAbort != nil {
				prev.onAbort()
			}
		})
	}

	m.gen++
	run := &phaseRun{
		gen:     m.gen,
		future:  future.New[Outcome](),
		quiet:   cfg.quiet,
		then:    cfg.then,
		onAbort: cfg.onAbort,
	}

	m.phase = phase
	m.start = time.Now()
	m.duration = max(d, 0)
	m.paused = false
	m.remaining = 0
	m.current = nil

	if d > 0 {
		m.current = run
		gen := run.gen
		m.timer = time.AfterFunc(d, func() {
			m.post(func() { m.expire(gen) })
		})
	} else {
		m.post(func() {
			run.future.Resolve(OutcomeElapsed)
			m.runActions(run.then)
		})
	}
	m.mu.Unlock()

	m.area.Room.metrics.PhaseAdvanced()
	m.logger.Debug().
		Str("phase", fmt.Sprint(phase)).
		Dur("duration", d).
		Msg("Phase advanced.")

	if cfg.abandon {
		m.area.responses.abandonPending()
	}

	if !cfg.quiet {
		m.area.Broadcast(MsgPhase, PhasePayload{
			Area:        m.area.Title(),
			Phase:       phase,
			DurationMs:  d.Milliseconds(),
			RemainingMs: d.Milliseconds(),
		})
	}

	return run.future, true
}

// expire completes the phase of generation gen if it is still current.
func (m *PhaseManager[P]) expire(gen uint64) {
	m.mu.Lock()
	run := m.current
	if run == nil || run.gen != gen || m.paused {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.timer = nil
	m.mu.Unlock()

	run.future.Resolve(OutcomeElapsed)
	m.runActions(run.then)
}

// Interrupt ends the pending phase early with OutcomeInterrupted and runs its
// follow-up actions. It is a no-op when no phase is pending.
func (m *PhaseManager[P]) Interrupt() {
	m.mu.Lock()
	run := m.current
	if run == nil {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.current = nil
	m.paused = false
	m.remaining = 0
	m.post(func() {
		run.future.Resolve(OutcomeInterrupted)
		m.runActions(run.then)
	})
	m.mu.Unlock()
}

// Pause freezes the running phase timer, remembering the time left.
// It is a no-op when already paused, when no timer is running, or when the
// timer has just fired.
func (m *PhaseManager[P]) Pause() {
	m.mu.Lock()
	if m.shutdown || m.current == nil || m.paused || m.timer == nil {
		m.mu.Unlock()
		return
	}
	if !m.timer.Stop() {
		m.mu.Unlock()
		return
	}
	m.timer = nil

	remaining := m.duration - time.Since(m.start)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	m.remaining = remaining
	m.paused = true

	quiet := m.current.quiet
	payload := m.payloadLocked()
	m.mu.Unlock()

	m.logger.Debug().Dur("remaining", remaining).Msg("Phase paused.")
	if !quiet {
		m.area.Broadcast(MsgPhasePaused, payload)
	}
}

// Resume restarts a paused phase timer for the time that was left. The phase
// start is reset to now so Remaining stays correct.
func (m *PhaseManager[P]) Resume() {
	m.mu.Lock()
	if m.shutdown || m.current == nil || !m.paused || m.remaining <= 0 {
		m.mu.Unlock()
		return
	}

	m.start = time.Now()
	m.duration = m.remaining
	m.remaining = 0
	m.paused = false

	gen := m.current.gen
	m.timer = time.AfterFunc(m.duration, func() {
		m.post(func() { m.expire(gen) })
	})

	quiet := m.current.quiet
	payload := m.payloadLocked()
	m.mu.Unlock()

	m.logger.Debug().Int64("remaining_ms", payload.RemainingMs).Msg("Phase resumed.")
	if !quiet {
		m.area.Broadcast(MsgPhaseResumed, payload)
	}
}

// RunPhaseSequence runs steps back to back: set the phase, wait for it to end,
// run the step's action, then move to the next step. The returned future
// resolves nil after the last action, the first action error, or
// ErrSequenceAborted if a step is superseded or cancelled.
func (m *PhaseManager[P]) RunPhaseSequence(steps []Step[P]) *future.Future[error] {
	result := future.New[error]()

	var runStep func(i int)
	runStep = func(i int) {
		if i >= len(steps) {
			result.Resolve(nil)
			return
		}
		step := steps[i]

		cfg := advanceConfig{
			quiet: step.Quiet,
			then: []func(){func() {
				if step.Action != nil {
					if err := step.Action(); err != nil {
						m.logger.Warn().Err(err).Int("step", i).Msg("Phase sequence action failed. Aborting sequence.")
						result.Resolve(err)
						return
					}
				}
				runStep(i + 1)
			}},
			onAbort: func() {
				result.Resolve(ErrSequenceAborted)
			},
		}

		if _, ok := m.advance(step.Phase, step.Duration, cfg); !ok {
			result.Resolve(ErrTimelineShutdown)
		}
	}
	runStep(0)

	return result
}

// Shutdown cancels the pending phase and stops the worker. Later calls are no-ops.
func (m *PhaseManager[P]) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	m.stopTimerLocked()

	if run := m.current; run != nil {
		m.post(func() {
			run.future.Resolve(OutcomeCancelled)
			if run.onAbort != nil {
				run.onAbort()
			}
		})
	}
	m.current = nil
	m.paused = false
	m.remaining = 0
	m.mu.Unlock()

	close(m.stop)
	m.logger.Debug().Msg("Timeline shut down.")
}

func (m *PhaseManager[P]) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *PhaseManager[P]) payloadLocked() PhasePayload {
	return PhasePayload{
		Area:        m.area.Title(),
		Phase:       m.phase,
		DurationMs:  m.duration.Milliseconds(),
		RemainingMs: m.remainingLocked().Milliseconds(),
		Paused:      m.paused,
	}
}

// post queues job for the worker. It never blocks.
func (m *PhaseManager[P]) post(job func()) {
	m.qmu.Lock()
	m.queue = append(m.queue, job)
	m.qmu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *PhaseManager[P]) work() {
	for {
		select {
		case <-m.wake:
			m.drain()
		case <-m.stop:
			m.drain()
			return
		}
	}
}

func (m *PhaseManager[P]) drain() {
	for {
		m.qmu.Lock()
		if len(m.queue) == 0 {
			m.qmu.Unlock()
			return
		}
		job := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.qmu.Unlock()

		m.runJob(job)
	}
}

func (m *PhaseManager[P]) runActions(actions []func()) {
	for _, action := range actions {
		m.runJob(action)
	}
}

// runJob keeps a panicking action from killing the worker.
func (m *PhaseManager[P]) runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Interface("panic", r).
				Msg("Recovered from panic in timeline action.")
		}
	}()
	job()
}
