package area_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzarena/internal/app/area"
	"hzarena/internal/app/user"
	"hzarena/internal/app/user/usertest"
)

func TestArea_Join(t *testing.T) {
	tests := []struct {
		name     string
		opts     []area.Option
		source   user.AuthSource
		password string
		prefill  int
		want     area.JoinResult
	}{
		{name: "open area", want: area.Joined, source: user.SourceGuest},
		{name: "correct password", opts: []area.Option{area.WithPassword("pw")}, password: "pw", source: user.SourceGuest, want: area.Joined},
		{name: "wrong password", opts: []area.Option{area.WithPassword("pw")}, password: "nope", source: user.SourceGuest, want: area.JoinBadPassword},
		{name: "guests refused", opts: []area.Option{area.WithGuests(false)}, source: user.SourceGuest, want: area.JoinGuestsNotAllowed},
		{name: "registered admitted without guests", opts: []area.Option{area.WithGuests(false)}, source: user.SourceRegistered, want: area.Joined},
		{name: "full", opts: []area.Option{area.WithMaxOccupants(2)}, prefill: 2, source: user.SourceGuest, want: area.JoinFull},
		{name: "below capacity", opts: []area.Option{area.WithMaxOccupants(2)}, prefill: 1, source: user.SourceGuest, want: area.Joined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := area.New("arena", tt.opts...)
			for i := range tt.prefill {
				u, _ := newUser(string(rune('a'+i)), user.SourceRegistered)
				a.AddOrGetUser(u)
			}

			u, _ := newUser("joiner", tt.source)
			o, got := a.Join(u, tt.password)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.OK(), o != nil)
			_, present := a.Occupant(u.Identity())
			assert.Equal(t, got.OK(), present)
		})
	}
}

func TestArea_JoinRejoin(t *testing.T) {
	a := area.New("arena", area.WithMaxOccupants(1))
	alice, _ := guest("alice")

	first, res := a.Join(alice, "")
	require.Equal(t, area.Joined, res)

	again, res := a.Join(alice, "")
	assert.Equal(t, area.Rejoined, res, "a full area still readmits its own occupant")
	assert.Same(t, first, again)
	assert.Equal(t, 1, a.OccupantCount())
}

func TestArea_ClosedRejectsMutation(t *testing.T) {
	a := area.New("arena")
	a.Close("done")

	alice, conn := guest("alice")
	_, res := a.Join(alice, "")
	assert.Equal(t, area.JoinClosed, res)
	assert.False(t, a.AddObserver(conn))

	assert.PanicsWithValue(t, area.ErrAreaClosed, func() { a.AddOrGetUser(alice) })
	assert.PanicsWithValue(t, area.ErrAreaClosed, func() { a.AddOrGetOccupant(area.NewOccupant(alice, a)) })
	assert.PanicsWithValue(t, area.ErrAreaClosed, func() { a.NewRoom("side") })
	assert.PanicsWithValue(t, area.ErrResurrect, func() { a.SetExistence(true) })

	// removals stay harmless
	_, ok := a.DropOccupant(alice.Identity())
	assert.False(t, ok)
}

func TestArea_AddOrGetOccupant(t *testing.T) {
	a := area.New("arena")
	bob, bobConn := guest("bob")
	require.True(t, a.AddObserver(bobConn))
	sameOrigin := usertest.NewConn("bob-tab2", "bob-origin")
	require.True(t, a.AddObserver(sameOrigin))

	o, added := a.AddOrGetOccupant(area.NewOccupant(bob, a))
	require.True(t, added)
	assert.Zero(t, a.ObserverCount(), "the occupant's own connections stop observing")

	again, added := a.AddOrGetOccupant(area.NewOccupant(bob, a))
	assert.False(t, added)
	assert.Same(t, o, again)

	other := area.New("elsewhere")
	carol, _ := guest("carol")
	assert.PanicsWithValue(t, area.ErrForeignOccupant, func() { a.AddOrGetOccupant(area.NewOccupant(carol, other)) })
	_, ok := a.Occupant(carol.Identity())
	assert.False(t, ok)
}

func TestArea_Close(t *testing.T) {
	hookCalls := 0
	a := area.New("arena", area.WithCloseHook(func(*area.Area) { hookCalls++ }))

	alice, aliceConn := guest("alice")
	a.AddOrGetUser(alice)
	watcher := usertest.NewConn("watcher", "watcher-origin")
	require.True(t, a.AddObserver(watcher))

	a.Close("idle")
	a.Close("idle")
	a.SetExistence(false)

	assert.False(t, a.Exists())
	assert.Equal(t, 1, hookCalls)
	assert.Zero(t, a.ObserverCount())

	for _, conn := range []*usertest.Conn{aliceConn, watcher} {
		msgs := conn.SentOfType(area.MsgAreaClosed)
		require.Len(t, msgs, 1)
		assert.Equal(t, area.AreaClosedPayload{Area: "arena", Reason: "idle"}, msgs[0].Payload)
	}
}

func TestArea_Observers(t *testing.T) {
	a := area.New("arena")
	alice, aliceConn := guest("alice")
	a.AddOrGetUser(alice)

	assert.False(t, a.AddObserver(aliceConn), "an occupant's connection cannot observe")
	sameOrigin := usertest.NewConn("alice-tab2", "alice-origin")
	assert.False(t, a.AddObserver(sameOrigin), "nor can another connection from the same origin")

	watcher := usertest.NewConn("watcher", "watcher-origin")
	assert.True(t, a.AddObserver(watcher))
	assert.True(t, a.AddObserver(watcher), "observing twice is idempotent")
	assert.Equal(t, 1, a.ObserverCount())

	assert.True(t, a.RemoveObserver(watcher))
	assert.False(t, a.RemoveObserver(watcher))
}

func TestArea_JoinDropsOwnObserver(t *testing.T) {
	a := area.New("arena")
	bob, bobConn := guest("bob")

	require.True(t, a.AddObserver(bobConn))
	_, res := a.Join(bob, "")
	require.Equal(t, area.Joined, res)

	assert.Zero(t, a.ObserverCount())

	a.Broadcast("chat", "hi")
	assert.Len(t, bobConn.SentOfType("chat"), 1, "no duplicate delivery as occupant and observer")
}

func TestArea_BroadcastReachesObservers(t *testing.T) {
	a := area.New("arena")
	alice, aliceConn := guest("alice")
	bob, bobConn := guest("bob")
	aliceOcc, _ := a.AddOrGetUser(alice)
	a.AddOrGetUser(bob)

	live := usertest.NewConn("live", "live-origin")
	dead := usertest.NewConn("dead", "dead-origin")
	a.AddObserver(live)
	a.AddObserver(dead)
	dead.SetStatus(user.StatusDisconnected)

	a.Broadcast("chat", "hello", aliceOcc)

	assert.Empty(t, aliceConn.Sent())
	assert.Len(t, bobConn.Sent(), 1)
	assert.Len(t, live.Sent(), 1)
	assert.Empty(t, dead.Sent())
	assert.Equal(t, 1, a.ObserverCount(), "disconnected observers are pruned")
}

func TestArea_BroadcastAudible(t *testing.T) {
	a := area.New("arena")
	alice, aliceConn := guest("alice")
	bob, bobConn := guest("bob")
	a.AddOrGetUser(alice)
	bobOcc, _ := a.AddOrGetUser(bob)
	bobOcc.SetDeafened(true)

	a.BroadcastAudible("chat", "psst")
	a.Broadcast("notice", "closing soon")

	assert.Len(t, aliceConn.SentOfType("chat"), 1)
	assert.Empty(t, bobConn.SentOfType("chat"))
	assert.Len(t, bobConn.SentOfType("notice"), 1, "system notices still reach deafened occupants")
}

func TestOccupant_DisplayName(t *testing.T) {
	a := area.New("arena")
	g, _ := newUser("sam", user.SourceGuest)
	reg, _ := newUser("sam", user.SourceRegistered)
	other, _ := guest("alex")

	gOcc, _ := a.AddOrGetUser(g)
	otherOcc, _ := a.AddOrGetUser(other)
	assert.Equal(t, "sam", gOcc.DisplayName())

	regOcc, _ := a.AddOrGetUser(reg)
	assert.Equal(t, "sam@guest", gOcc.DisplayName())
	assert.Equal(t, "sam@registered", regOcc.DisplayName())
	assert.Equal(t, "alex", otherOcc.DisplayName())

	a.DropOccupant(reg.Identity())
	assert.Equal(t, "sam", gOcc.DisplayName())
}

func TestOccupant_IsAway(t *testing.T) {
	a := area.New("arena")
	alice, conn := guest("alice")
	o, _ := a.AddOrGetUser(alice)

	assert.False(t, o.IsAway())
	o.SetAway(true)
	assert.True(t, o.IsAway())
	o.SetAway(false)

	alice.DetachConnection(conn)
	assert.True(t, o.IsAway(), "a logged-out user is away")
}

func TestOccupant_EnterRoom(t *testing.T) {
	a := area.New("arena")
	alice, _ := guest("alice")
	o, _ := a.AddOrGetUser(alice)

	assert.Same(t, a.Room, o.Room())

	red := a.NewRoom("red")
	blue := a.NewRoom("blue")
	assert.Same(t, red, a.NewRoom("red"))
	assert.Equal(t, []string{"blue", "red"}, a.RoomTitles())

	o.EnterRoom(red)
	assert.Same(t, red, o.Room())
	assert.Equal(t, 1, red.OccupantCount())

	o.EnterRoom(blue)
	assert.Zero(t, red.OccupantCount())
	assert.Equal(t, 1, blue.OccupantCount())

	a.DropOccupant(alice.Identity())
	assert.Zero(t, blue.OccupantCount(), "leaving the area leaves its sub-room")
}
