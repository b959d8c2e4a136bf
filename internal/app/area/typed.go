package area

import (
	"math"
	"time"

	"hzarena/internal/pkg/future"
)

// Answer is a response projected onto type T. OK is false when the occupant did
// not answer or answered with a value of another type.
type Answer[T any] struct {
	Occupant *Occupant
	Value    T
	OK       bool
}

// TypedResult is a Result whose responses were projected onto type T.
type TypedResult[T any] struct {
	Type    string
	Status  Status
	Answers []Answer[T]
}

// Project converts r with conv. Values conv rejects become "no answer"
// instead of failing the whole result.
func Project[T any](r Result, conv func(any) (T, bool)) TypedResult[T] {
	answers := make([]Answer[T], 0, len(r.Responses))
	for _, resp := range r.Responses {
		a := Answer[T]{Occupant: resp.Occupant}
		if resp.Value != nil {
			a.Value, a.OK = conv(resp.Value)
		}
		answers = append(answers, a)
	}
	return TypedResult[T]{Type: r.Type, Status: r.Status, Answers: answers}
}

// RequestAs is RequestResponses with every answer projected through conv.
func RequestAs[T any](c *Collector, responseType string, cancelValue any, timeout time.Duration, conv func(any) (T, bool)) *future.Future[TypedResult[T]] {
	return future.Map(c.RequestResponses(responseType, cancelValue, timeout), func(r Result) TypedResult[T] {
		return Project(r, conv)
	})
}

// RequestBoolean collects answers projected to bool.
func (c *Collector) RequestBoolean(responseType string, cancelValue any, timeout time.Duration) *future.Future[TypedResult[bool]] {
	return RequestAs(c, responseType, cancelValue, timeout, AsBool)
}

// RequestInt collects answers projected to int. See AsInt.
func (c *Collector) RequestInt(responseType string, cancelValue any, timeout time.Duration) *future.Future[TypedResult[int]] {
	return RequestAs(c, responseType, cancelValue, timeout, AsInt)
}

// RequestDouble collects answers projected to float64.
func (c *Collector) RequestDouble(responseType string, cancelValue any, timeout time.Duration) *future.Future[TypedResult[float64]] {
	return RequestAs(c, responseType, cancelValue, timeout, AsDouble)
}

// RequestString collects answers projected to string.
func (c *Collector) RequestString(responseType string, cancelValue any, timeout time.Duration) *future.Future[TypedResult[string]] {
	return RequestAs(c, responseType, cancelValue, timeout, AsString)
}

// GetConfirmation asks every occupant a yes/no question. It resolves true only
// when the request completed and every participant answered true; a missing,
// mistyped or false answer, a timeout or an abandoned request all yield false.
func (c *Collector) GetConfirmation(responseType string, timeout time.Duration) *future.Future[bool] {
	return future.Map(c.RequestBoolean(responseType, nil, timeout), func(r TypedResult[bool]) bool {
		if r.Status != StatusCompleted {
			return false
		}
		for _, a := range r.Answers {
			if !a.OK || !a.Value {
				return false
			}
		}
		return true
	})
}

// AsBool accepts only a bool.
func AsBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// AsInt accepts any Go integer type, and a float64 holding a whole number as
// decoded from JSON.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	}
	return 0, false
}

// AsDouble accepts float32 and float64.
func AsDouble(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	}
	return 0, false
}

// AsString accepts only a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
