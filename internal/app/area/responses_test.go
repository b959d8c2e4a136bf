package area_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzarena/internal/app/area"
	"hzarena/internal/app/user"
)

func TestCollector_CompletesWhenAllHumansAnswer(t *testing.T) {
	a := area.New("arena")
	alice, aliceConn := guest("alice")
	bob, _ := guest("bob")
	bot, _ := newUser("dealer", user.SourceBot)
	aliceOcc, _ := a.AddOrGetUser(alice)
	bobOcc, _ := a.AddOrGetUser(bob)
	a.AddOrGetUser(bot)

	f := a.Responses().RequestResponses("vote", nil, time.Hour)

	reqs := aliceConn.SentOfType(area.MsgResponseRequest)
	require.Len(t, reqs, 1)
	assert.Equal(t, area.ResponseRequestPayload{Area: "arena", Type: "vote", TimeoutMs: time.Hour.Milliseconds()}, reqs[0].Payload)

	aliceOcc.SetResponse("vote", "red")
	assert.False(t, f.IsResolved())
	assert.True(t, a.Responses().Pending("vote"))

	bobOcc.SetResponse("vote", "blue")
	res := await(t, f)

	assert.Equal(t, area.StatusCompleted, res.Status)
	assert.Equal(t, "vote", res.Type)
	assert.ElementsMatch(t, []area.Response{
		{Occupant: aliceOcc, Value: "red"},
		{Occupant: bobOcc, Value: "blue"},
	}, res.Responses, "bots are not participants")
	assert.False(t, a.Responses().Pending("vote"))
}

func TestCollector_CancelValue(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	bob, _ := guest("bob")
	carol, _ := guest("carol")
	aliceOcc, _ := a.AddOrGetUser(alice)
	bobOcc, _ := a.AddOrGetUser(bob)
	a.AddOrGetUser(carol)

	f := a.Responses().RequestResponses("ready", "abort", time.Hour)
	aliceOcc.SetResponse("ready", "yes")
	bobOcc.SetResponse("ready", "abort")

	res := await(t, f)
	assert.Equal(t, area.StatusCancelled, res.Status)
	assert.ElementsMatch(t, []area.Response{
		{Occupant: aliceOcc, Value: "yes"},
		{Occupant: bobOcc, Value: "abort"},
	}, res.Responses, "only occupants that answered are listed")
}

func TestCollector_CancelValueFirstAnswer(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	bob, _ := guest("bob")
	carol, _ := guest("carol")
	a.AddOrGetUser(alice)
	bobOcc, _ := a.AddOrGetUser(bob)
	a.AddOrGetUser(carol)

	f := a.Responses().RequestResponses("ready", "abort", time.Hour)
	bobOcc.SetResponse("ready", "abort")

	res := await(t, f)
	assert.Equal(t, area.StatusCancelled, res.Status)
	require.Len(t, res.Responses, 1)
	assert.Equal(t, area.Response{Occupant: bobOcc, Value: "abort"}, res.Responses[0])
}

func TestCollector_TimeoutFallback(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	bob, _ := guest("bob")
	aliceOcc, _ := a.AddOrGetUser(alice)
	bobOcc, _ := a.AddOrGetUser(bob)

	f := a.Responses().RequestResponses("guess", nil, 30*time.Millisecond)
	aliceOcc.SetResponse("guess", 7)

	res := await(t, f)
	assert.Equal(t, area.StatusTimedOut, res.Status)
	assert.ElementsMatch(t, []area.Response{
		{Occupant: aliceOcc, Value: 7},
		{Occupant: bobOcc, Value: nil},
	}, res.Responses)
}

func TestCollector_EmptyAreaCompletesImmediately(t *testing.T) {
	a := area.New("arena")
	bot, _ := newUser("dealer", user.SourceBot)
	a.AddOrGetUser(bot)

	f := a.Responses().RequestResponses("vote", nil, time.Hour)

	require.True(t, f.IsResolved())
	res := await(t, f)
	assert.Equal(t, area.StatusCompleted, res.Status)
	assert.Empty(t, res.Responses)
}

func TestCollector_RequestClearsStaleAnswers(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	bob, _ := guest("bob")
	aliceOcc, _ := a.AddOrGetUser(alice)
	a.AddOrGetUser(bob)

	aliceOcc.SetResponse("vote", "old")
	a.Responses().RequestResponses("vote", nil, time.Hour)

	_, ok := aliceOcc.Response("vote")
	assert.False(t, ok)
}

func TestCollector_SecondRequestAbandonsFirst(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	a.AddOrGetUser(alice)

	first := a.Responses().RequestResponses("vote", nil, time.Hour)
	second := a.Responses().RequestResponses("vote", nil, time.Hour)

	assert.Equal(t, area.StatusAbandoned, await(t, first).Status)
	assert.False(t, second.IsResolved())

	assert.True(t, a.Responses().Cancel("vote"))
	assert.False(t, a.Responses().Cancel("vote"))
	assert.Equal(t, area.StatusAbandoned, await(t, second).Status)
}

func TestCollector_AreaCloseAbandons(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	a.AddOrGetUser(alice)

	f := a.Responses().RequestResponses("vote", nil, time.Hour)
	a.Close("done")

	assert.Equal(t, area.StatusAbandoned, await(t, f).Status)

	late := a.Responses().RequestResponses("vote", nil, time.Hour)
	require.True(t, late.IsResolved())
	assert.Equal(t, area.StatusAbandoned, await(t, late).Status)
}

func TestCollector_LeavingOccupantCompletesRequest(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	bob, _ := guest("bob")
	carol, _ := guest("carol")
	aliceOcc, _ := a.AddOrGetUser(alice)
	a.AddOrGetUser(bob)
	carolOcc, _ := a.AddOrGetUser(carol)

	f := a.Responses().RequestResponses("vote", nil, time.Hour)
	aliceOcc.SetResponse("vote", 1)
	carolOcc.SetResponse("vote", 2)
	require.False(t, f.IsResolved())

	a.DropOccupant(bob.Identity())

	res := await(t, f)
	assert.Equal(t, area.StatusCompleted, res.Status)
	assert.Len(t, res.Responses, 2)
}

func TestCollector_RequestInt(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	bob, _ := guest("bob")
	aliceOcc, _ := a.AddOrGetUser(alice)
	bobOcc, _ := a.AddOrGetUser(bob)

	f := a.Responses().RequestInt("bid", nil, time.Hour)
	aliceOcc.SetResponse("bid", int64(12))
	bobOcc.SetResponse("bid", "twelve")

	res := await(t, f)
	require.Equal(t, area.StatusCompleted, res.Status)

	byName := map[string]area.Answer[int]{}
	for _, ans := range res.Answers {
		byName[ans.Occupant.Identity().Name] = ans
	}
	assert.Equal(t, area.Answer[int]{Occupant: aliceOcc, Value: 12, OK: true}, byName["alice"])
	assert.False(t, byName["bob"].OK, "a mistyped answer counts as no answer")
}

func TestCollector_GetConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		answers []any
		want    bool
	}{
		{name: "all true", answers: []any{true, true}, want: true},
		{name: "one false", answers: []any{true, false}, want: false},
		{name: "one mistyped", answers: []any{true, "yes"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := area.New("arena")
			var occupants []*area.Occupant
			for i := range tt.answers {
				u, _ := guest(string(rune('a' + i)))
				o, _ := a.AddOrGetUser(u)
				occupants = append(occupants, o)
			}

			f := a.Responses().GetConfirmation("ready", time.Hour)
			for i, v := range tt.answers {
				occupants[i].SetResponse("ready", v)
			}

			assert.Equal(t, tt.want, await(t, f))
		})
	}
}

func TestCollector_GetConfirmationTimesOut(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	bob, _ := guest("bob")
	aliceOcc, _ := a.AddOrGetUser(alice)
	a.AddOrGetUser(bob)

	f := a.Responses().GetConfirmation("ready", 20*time.Millisecond)
	aliceOcc.SetResponse("ready", true)

	assert.False(t, await(t, f))
}

func TestConverters(t *testing.T) {
	n, ok := area.AsInt(uint16(9))
	assert.True(t, ok)
	assert.Equal(t, 9, n)

	_, ok = area.AsInt(1.5)
	assert.False(t, ok)

	n, ok = area.AsInt(float64(42))
	assert.True(t, ok, "whole JSON numbers are integers")
	assert.Equal(t, 42, n)

	d, ok := area.AsDouble(float32(0.5))
	assert.True(t, ok)
	assert.InDelta(t, 0.5, d, 1e-9)

	_, ok = area.AsString(3)
	assert.False(t, ok)
}
