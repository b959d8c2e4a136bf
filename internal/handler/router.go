/*
Package handler provides the HTTP handlers and routing setup for the HZ Arena Server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"hzarena/internal/pkg/auth/jwt"
	"hzarena/internal/pkg/limiter"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/pow"
	"hzarena/internal/pkg/resp"
)

const (
	CreateRate   = 0.05
	CreateBurst  = 2
	AuthRate     = 0.5
	AuthBurst    = 10
	ConnectRate  = 0.2
	ConnectBurst = 5
	ChatRate     = 2
	ChatBurst    = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes the rate limiters, whose cleanup goroutines stop with ctx, configures
// CORS, and applies global and per-route middleware.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(CreateRate), CreateBurst)
	authLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(AuthRate), AuthBurst)
	connectLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(ConnectRate), ConnectBurst)
	chatLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(ChatRate), ChatBurst)

	dispatcher := NewDispatcher(deps.Manager, chatLimiter)

	if deps.Pow == nil {
		deps.Pow = pow.NewManager(ctx, deps.Config.PowDifficulty)
	}

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", pow.TokenHeaderKey},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger("/health", "/metrics"))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":  "ok",
			"service": "HZ Arena Server",
			"areas":   len(deps.Manager.Areas()),
			"users":   len(deps.Manager.Users()),
		}
		resp.RespondSuccess(w, r, data)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.Use(authLimiter.Middleware)
			auth.Post("/guest", HandleGuest(deps))
			auth.Post("/register", HandleRegister(deps))
			auth.Post("/login", HandleLogin(deps))
		})

		api.Route("/pow", func(p chi.Router) {
			p.Use(authLimiter.Middleware)
			p.Get("/challenge", HandlePowChallenge(deps))
			p.Post("/verify", HandlePowVerify(deps))
		})

		api.Route("/areas", func(areas chi.Router) {
			areas.Get("/", HandleListAreas(deps))
			areas.Get("/{title}", HandleGetArea(deps))
			areas.With(jwt.RequireIdentity, createLimiter.Middleware, deps.Pow.Middleware).Post("/", HandleCreateArea(deps))
		})
	})

	r.With(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret), jwt.RequireIdentity).
		Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, dispatcher, deps))

	return r
}
