package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzarena/internal/app/db"
	"hzarena/internal/app/lobby"
	"hzarena/internal/app/user"
	"hzarena/internal/configs"
	"hzarena/internal/handler"
	"hzarena/internal/pkg/errs"
	"hzarena/internal/pkg/metrics"
	"hzarena/internal/pkg/pow"
)

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[string]string)}
}

func (f *fakeAccounts) Register(_ context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.accounts[username]; ok {
		return db.ErrAccountExists
	}
	f.accounts[username] = password
	return nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if stored, ok := f.accounts[username]; !ok || stored != password {
		return db.ErrBadCredentials
	}
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newServer(t *testing.T, accounts handler.AccountStore) (*httptest.Server, *handler.AppDeps) {
	t.Helper()
	return newServerWithConfig(t, testConfig(), accounts)
}

func newServerWithConfig(t *testing.T, cfg *configs.AppConfig, accounts handler.AccountStore) (*httptest.Server, *handler.AppDeps) {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	deps := &handler.AppDeps{
		Manager:  lobby.NewManager(cfg, lobby.WithMetrics(m)),
		Config:   cfg,
		Metrics:  m,
		Accounts: accounts,
	}

	srv := httptest.NewServer(handler.Router(t.Context(), deps))
	t.Cleanup(srv.Close)
	return srv, deps
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func guestToken(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()

	status, env := call(t, srv, http.MethodPost, "/api/auth/guest", "", handler.GuestInput{Name: name})
	require.Equal(t, http.StatusOK, status)

	var tok handler.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	require.NotEmpty(t, tok.Token)
	return tok.Token
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newServer(t, nil)

	status, env := call(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}

func TestRouter_Metrics(t *testing.T) {
	srv, _ := newServer(t, nil)

	res, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestRouter_GuestToken(t *testing.T) {
	srv, _ := newServer(t, nil)

	status, env := call(t, srv, http.MethodPost, "/api/auth/guest", "", handler.GuestInput{})
	require.Equal(t, http.StatusOK, status)

	var tok handler.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	assert.True(t, strings.HasPrefix(tok.Identity.Name, "Guest_"))
	assert.Equal(t, user.SourceGuest, tok.Identity.Source)

	_, env = call(t, srv, http.MethodPost, "/api/auth/guest", "", handler.GuestInput{Name: "no spaces allowed"})
	assert.Equal(t, errs.ErrInvalidUsername, env.Code)
}

func TestRouter_RegisteredAuth(t *testing.T) {
	t.Run("unavailable without a database", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		_, env := call(t, srv, http.MethodPost, "/api/auth/login", "", handler.CredentialsInput{Username: "alice", Password: "password1"})
		assert.Equal(t, errs.ErrRegisteredUnavailable, env.Code)
	})

	t.Run("register then login", func(t *testing.T) {
		srv, _ := newServer(t, newFakeAccounts())
		creds := handler.CredentialsInput{Username: "alice", Password: "password1"}

		status, env := call(t, srv, http.MethodPost, "/api/auth/register", "", creds)
		require.Equal(t, http.StatusOK, status)
		var tok handler.TokenResponse
		require.NoError(t, json.Unmarshal(env.Data, &tok))
		assert.Equal(t, user.NewIdentity("alice", user.SourceRegistered), tok.Identity)

		_, env = call(t, srv, http.MethodPost, "/api/auth/register", "", creds)
		assert.Equal(t, errs.ErrUsernameTaken, env.Code)

		status, _ = call(t, srv, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusOK, status)

		_, env = call(t, srv, http.MethodPost, "/api/auth/login", "", handler.CredentialsInput{Username: "alice", Password: "wrong-one"})
		assert.Equal(t, errs.ErrInvalidCredentials, env.Code)

		_, env = call(t, srv, http.MethodPost, "/api/auth/register", "", handler.CredentialsInput{Username: "bob", Password: "123"})
		assert.Equal(t, errs.ErrInvalidPassword, env.Code)
	})
}

func TestRouter_Areas(t *testing.T) {
	srv, deps := newServer(t, nil)

	status, env := call(t, srv, http.MethodPost, "/api/areas", "", handler.CreateAreaInput{Title: "lobby"})
	assert.Equal(t, errs.ErrUnauthorized, env.Code)
	assert.Equal(t, http.StatusUnauthorized, status)

	token := guestToken(t, srv, "alice")

	status, env = call(t, srv, http.MethodPost, "/api/areas", token, handler.CreateAreaInput{
		Title:    "duel",
		Password: "pw",
		Rooms:    []string{"red", "blue"},
	})
	require.Equal(t, http.StatusOK, status)

	var created handler.AreaInfo
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "duel", created.Title)
	assert.True(t, created.HasPassword)
	assert.Equal(t, []string{"blue", "red"}, created.Rooms)
	assert.Equal(t, deps.Config.AreaMaxOccupants, created.MaxOccupants)

	_, env = call(t, srv, http.MethodPost, "/api/areas", token, handler.CreateAreaInput{Title: "duel"})
	assert.Equal(t, errs.ErrAreaExists, env.Code)

	status, env = call(t, srv, http.MethodGet, "/api/areas", "", nil)
	require.Equal(t, http.StatusOK, status)
	var list []handler.AreaInfo
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "duel", list[0].Title)

	status, _ = call(t, srv, http.MethodGet, "/api/areas/duel", "", nil)
	assert.Equal(t, http.StatusOK, status)

	_, env = call(t, srv, http.MethodGet, "/api/areas/nowhere", "", nil)
	assert.Equal(t, errs.ErrAreaNotFound, env.Code)
}

func TestRouter_PowGatedCreate(t *testing.T) {
	cfg := testConfig()
	cfg.PowDifficulty = 1
	srv, _ := newServerWithConfig(t, cfg, nil)
	token := guestToken(t, srv, "alice")

	_, env := call(t, srv, http.MethodPost, "/api/areas", token, handler.CreateAreaInput{Title: "gated"})
	assert.Equal(t, errs.ErrPowChallengeRequired, env.Code)

	status, env := call(t, srv, http.MethodGet, "/api/pow/challenge", "", nil)
	require.Equal(t, http.StatusOK, status)
	var challenge pow.Challenge
	require.NoError(t, json.Unmarshal(env.Data, &challenge))
	assert.Equal(t, 1, challenge.Difficulty)

	counter := ""
	for i := 0; ; i++ {
		if c := strconv.Itoa(i); pow.Solves(challenge.Nonce, c, challenge.Difficulty) {
			counter = c
			break
		}
	}

	_, env = call(t, srv, http.MethodPost, "/api/pow/verify", "", handler.PowVerifyInput{Nonce: challenge.Nonce, Counter: counter})
	var proof handler.PowTokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &proof))
	require.NotEmpty(t, proof.Token)

	_, env = call(t, srv, http.MethodPost, "/api/areas?"+pow.TokenQueryParam+"="+proof.Token, token, handler.CreateAreaInput{Title: "gated"})
	assert.Equal(t, 0, env.Code)
}

func TestRouter_PowDisabled(t *testing.T) {
	srv, _ := newServer(t, nil)

	_, env := call(t, srv, http.MethodGet, "/api/pow/challenge", "", nil)
	assert.Equal(t, errs.ErrPowChallengeDisabled, env.Code)
}

type wireMessage struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	ws, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	res.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) wireMessage {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestRouter_WebSocketRequiresToken(t *testing.T) {
	srv, _ := newServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestRouter_WebSocketSession(t *testing.T) {
	srv, deps := newServer(t, nil)
	_, customErr := deps.Manager.CreateArea("lounge")
	require.Nil(t, customErr)

	token := guestToken(t, srv, "alice")
	ws := dial(t, srv, token)

	welcome := readMessage(t, ws)
	require.Equal(t, handler.MsgWelcome, welcome.Type)
	var hello handler.WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &hello))
	assert.Equal(t, user.NewIdentity("alice", user.SourceGuest), hello.Identity)
	assert.False(t, hello.Resumed)

	require.NoError(t, ws.WriteJSON(map[string]any{
		"id":      "j1",
		"type":    handler.InJoin,
		"payload": handler.AreaRequest{Area: "lounge"},
	}))
	joined := readMessage(t, ws)
	assert.Equal(t, handler.MsgJoined, joined.Type)

	id := user.NewIdentity("alice", user.SourceGuest)
	_, occupied := deps.Manager.OccupiedArea(id)
	assert.True(t, occupied)

	// a second connection resumes the session and keeps the occupancy
	ws2 := dial(t, srv, token)
	resumed := readMessage(t, ws2)
	require.Equal(t, handler.MsgWelcome, resumed.Type)
	require.NoError(t, json.Unmarshal(resumed.Payload, &hello))
	assert.True(t, hello.Resumed)
	require.NotNil(t, hello.Area)
	assert.Equal(t, "lounge", hello.Area.Title)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, 4001, closeErr.Code)

	ws2.Close()
	u, ok := deps.Manager.LookupUser(id)
	require.True(t, ok)
	assert.Eventually(t, func() bool { return !u.LoggedIn() }, 2*time.Second, 10*time.Millisecond)
}
