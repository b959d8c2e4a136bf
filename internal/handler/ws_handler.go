/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting, binding the
authenticated identity to a lobby session, upgrading the HTTP connection to WebSocket, and running
the connection's pumps until the client goes away.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"hzarena/internal/app/wsconn"
	"hzarena/internal/pkg/auth/jwt"
	"hzarena/internal/pkg/errs"
	"hzarena/internal/pkg/limiter"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// It must run behind jwt.RequireIdentity.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, dispatcher *Dispatcher, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)
		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		id := jwt.GetPayloadFromContext(r).Identity()

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "identity", id.String())
			return
		}

		conn := wsconn.New(ws, r.RemoteAddr)
		conn.SetLogger(logx.Logger().With().
			Str("component", "wsconn").
			Str("identity", id.String()).
			Str("remote_ip", logx.AnonymizeIP(ip)).
			Logger())

		u, resumed := deps.Manager.Login(id, conn)
		conn.MarkLoggedIn()

		go conn.WritePump()

		welcome := WelcomePayload{Identity: id, Resumed: resumed}
		if o, ok := deps.Manager.OccupiedArea(id); ok {
			info := newAreaInfo(o.Area(), true)
			welcome.Area = &info
		}
		if err := conn.Send(MsgWelcome, welcome); err != nil {
			logx.Warn("Failed to queue welcome message.", "identity", id.String(), "error", err)
		}

		logx.Info("WebSocket connection established.", "identity", id.String(), "resumed", resumed)

		conn.ReadPump(func(c *wsconn.Conn, msg wsconn.Inbound) {
			dispatcher.Handle(u, c, msg)
		}, func() {
			deps.Manager.Disconnect(u, conn)
		})
	}
}
