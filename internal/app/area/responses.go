package area

import (
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzarena/internal/pkg/future"
)

// Status is how a response request was resolved.
type Status int

const (
	// StatusCompleted means every non-bot occupant answered.
	StatusCompleted Status = iota + 1

	// StatusCancelled means a non-bot occupant answered with the cancel value.
	StatusCancelled

	// StatusTimedOut means the deadline passed first.
	StatusTimedOut

	// StatusAbandoned means the request was cancelled, replaced by a new request
	// for the same type, or the area closed.
	StatusAbandoned
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed_out"
	case StatusAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Response pairs an occupant with its answer. A nil Value means no answer.
type Response struct {
	Occupant *Occupant
	Value    any
}

// Result is the resolution of a response request.
//
// Completed results list every non-bot occupant. Cancelled results list only the
// occupants that had answered. Timed-out results list every non-bot occupant
// present when the deadline fired, with nil for those that had not answered.
type Result struct {
	Type      string
	Status    Status
	Responses []Response
}

type request struct {
	cancelValue any
	future      *future.Future[Result]
	timer       *time.Timer
}

// Collector fans a request out to an area's occupants and gathers their answers.
// Completion is re-evaluated on every answer rather than by polling.
type Collector struct {
	area *Area

	mu      sync.Mutex
	pending map[string]*request
	closed  bool

	logger zerolog.Logger
}

func newCollector(a *Area) *Collector {
	return &Collector{
		area:    a,
		pending: make(map[string]*request),
		logger: a.Room.logger.With().
			Str("component", "Collector").
			Logger(),
	}
}

// RequestResponses clears every occupant's answer for responseType, broadcasts
// a request and returns a future for the non-bot answers. A non-nil cancelValue
// resolves the request early as soon as any non-bot occupant answers with it.
// A pending request of the same type is abandoned. On a closed area the future
// is already resolved as abandoned.
func (c *Collector) RequestResponses(responseType string, cancelValue any, timeout time.Duration) *future.Future[Result] {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return future.Resolved(Result{Type: responseType, Status: StatusAbandoned})
	}

	prev := c.takeLocked(responseType)

	for _, o := range c.area.Occupants() {
		o.clearResponse(responseType)
	}

	req := &request{
		cancelValue: cancelValue,
		future:      future.New[Result](),
	}
	req.timer = time.AfterFunc(timeout, func() {
		c.expire(responseType, req)
	})
	c.pending[responseType] = req
	c.mu.Unlock()

	if prev != nil {
		c.resolve(prev, Result{Type: responseType, Status: StatusAbandoned})
	}

	c.logger.Debug().
		Str("response_type", responseType).
		Dur("timeout", timeout).
		Msg("Requesting responses.")

	c.area.Broadcast(MsgResponseRequest, ResponseRequestPayload{
		Area:      c.area.Title(),
		Type:      responseType,
		TimeoutMs: timeout.Milliseconds(),
	})

	// answers may have raced the reset, and an area without humans is complete at once
	c.check(responseType)

	return req.future
}

// Pending reports whether a request for responseType is awaiting answers.
func (c *Collector) Pending(responseType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.pending[responseType]
	return ok
}

// Cancel abandons the pending request for responseType. It reports whether one existed.
func (c *Collector) Cancel(responseType string) bool {
	c.mu.Lock()
	req := c.takeLocked(responseType)
	c.mu.Unlock()

	if req == nil {
		return false
	}
	c.resolve(req, Result{Type: responseType, Status: StatusAbandoned})
	return true
}

// check resolves the pending request for responseType if every non-bot
// occupant has answered, or if one answered with the cancel value.
func (c *Collector) check(responseType string) {
	c.mu.Lock()
	req, ok := c.pending[responseType]
	if !ok {
		c.mu.Unlock()
		return
	}

	var answered []Response
	complete := true
	cancelled := false

	for _, o := range c.participants() {
		v, has := o.Response(responseType)
		if !has {
			complete = false
			continue
		}
		answered = append(answered, Response{Occupant: o, Value: v})
		if req.cancelValue != nil && reflect.DeepEqual(v, req.cancelValue) {
			cancelled = true
		}
	}

	var result Result
	switch {
	case complete:
		result = Result{Type: responseType, Status: StatusCompleted, Responses: answered}
	case cancelled:
		result = Result{Type: responseType, Status: StatusCancelled, Responses: answered}
	default:
		c.mu.Unlock()
		return
	}

	c.takeLocked(responseType)
	c.mu.Unlock()

	c.resolve(req, result)
}

// checkAll re-evaluates every pending request.
func (c *Collector) checkAll() {
	c.mu.Lock()
	types := make([]string, 0, len(c.pending))
	for responseType := range c.pending {
		types = append(types, responseType)
	}
	c.mu.Unlock()

	for _, responseType := range types {
		c.check(responseType)
	}
}

// expire resolves req with the answers present when the deadline fires.
func (c *Collector) expire(responseType string, req *request) {
	c.mu.Lock()
	if c.pending[responseType] != req {
		c.mu.Unlock()
		return
	}
	delete(c.pending, responseType)

	participants := c.participants()
	responses := make([]Response, 0, len(participants))
	for _, o := range participants {
		v, _ := o.Response(responseType)
		responses = append(responses, Response{Occupant: o, Value: v})
	}
	c.mu.Unlock()

	c.resolve(req, Result{Type: responseType, Status: StatusTimedOut, Responses: responses})
}

// abandonAll resolves every pending request as abandoned and refuses new ones.
func (c *Collector) abandonAll() {
	c.abandon(true)
}

// abandonPending resolves every pending request as abandoned and keeps
// accepting new ones.
func (c *Collector) abandonPending() {
	c.abandon(false)
}

func (c *Collector) abandon(closing bool) {
	c.mu.Lock()
	if closing {
		c.closed = true
	}
	pending := c.pending
	c.pending = make(map[string]*request)
	c.mu.Unlock()

	for responseType, req := range pending {
		req.timer.Stop()
		c.resolve(req, Result{Type: responseType, Status: StatusAbandoned})
	}
}

func (c *Collector) takeLocked(responseType string) *request {
	req, ok := c.pending[responseType]
	if !ok {
		return nil
	}
	delete(c.pending, responseType)
	req.timer.Stop()
	return req
}

// participants are the occupants required to answer: everyone but bots.
func (c *Collector) participants() []*Occupant {
	all := c.area.Occupants()
	humans := all[:0]
	for _, o := range all {
		if !o.User().IsBot() {
			humans = append(humans, o)
		}
	}
	return humans
}

func (c *Collector) resolve(req *request, result Result) {
	if !req.future.Resolve(result) {
		return
	}

	c.area.Room.metrics.ResponseResolved(result.Status.String())
	c.logger.Debug().
		Str("response_type", result.Type).
		Str("status", result.Status.String()).
		Int("responses", len(result.Responses)).
		Msg("Response request resolved.")
}
