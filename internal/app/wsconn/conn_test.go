package wsconn_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzarena/internal/app/user"
	"hzarena/internal/app/wsconn"
)

// serve starts a server whose connections echo every inbound payload back as
// an "echo" message, and hands each server-side Conn to conns.
func serve(t *testing.T) (string, chan *wsconn.Conn, chan struct{}) {
	t.Helper()

	conns := make(chan *wsconn.Conn, 4)
	closed := make(chan struct{}, 4)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := wsconn.New(ws, r.RemoteAddr)
		c.MarkLoggedIn()
		conns <- c

		go c.WritePump()
		go c.ReadPump(func(c *wsconn.Conn, msg wsconn.Inbound) {
			c.Send("echo", msg.Payload)
		}, func() { closed <- struct{}{} })
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), conns, closed
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func readEnvelope(t *testing.T, client *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestConn_SendEnvelope(t *testing.T) {
	url, conns, _ := serve(t)
	client := dial(t, url)
	c := <-conns

	require.NoError(t, c.Send("phase", map[string]int{"round": 2}))

	env := readEnvelope(t, client)
	assert.Equal(t, "phase", env["type"])
	assert.Equal(t, map[string]any{"round": float64(2)}, env["payload"])
	assert.NotEmpty(t, env["id"])
	assert.NotZero(t, env["timestamp"])
	assert.Equal(t, user.StatusOK, c.Status())
}

func TestConn_InboundHandler(t *testing.T) {
	url, _, _ := serve(t)
	client := dial(t, url)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, client.WriteJSON(map[string]any{"type": "chat", "payload": "hi"}))

	env := readEnvelope(t, client)
	assert.Equal(t, "echo", env["type"], "malformed frames are skipped")
	assert.Equal(t, "hi", env["payload"])
}

func TestConn_CloseSendsReason(t *testing.T) {
	url, conns, closed := serve(t)
	client := dial(t, url)
	c := <-conns

	require.NoError(t, c.Send("notice", "bye soon"))
	c.Close(user.ReasonSessionReplaced)
	c.Close("ignored")

	assert.ErrorIs(t, c.Send("late", nil), wsconn.ErrClosed)

	env := readEnvelope(t, client)
	assert.Equal(t, "notice", env["type"], "queued messages are flushed before closing")

	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, wsconn.CloseCodeSessionKicked, closeErr.Code)
	assert.Equal(t, user.ReasonSessionReplaced, closeErr.Text)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("read pump did not finish")
	}
	assert.Equal(t, user.StatusDisconnected, c.Status())
}

func TestConn_ClientGoesAway(t *testing.T) {
	url, conns, closed := serve(t)
	client := dial(t, url)
	c := <-conns

	client.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("read pump did not notice the client leaving")
	}
	assert.False(t, c.Status().Live())
	assert.Error(t, c.Send("late", nil))
}

func TestConn_SameOrigin(t *testing.T) {
	url, conns, _ := serve(t)
	dial(t, url)
	dial(t, url)
	a, b := <-conns, <-conns

	assert.True(t, a.SameOrigin(b), "both clients dial from loopback")
	assert.False(t, a.SameOrigin(a))
	assert.Equal(t, "127.0.0.1", a.Address())
}
