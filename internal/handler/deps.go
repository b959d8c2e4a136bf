package handler

import (
	"context"

	"hzarena/internal/app/lobby"
	"hzarena/internal/configs"
	"hzarena/internal/pkg/metrics"
	"hzarena/internal/pkg/pow"
)

// AccountStore verifies and creates registered accounts.
type AccountStore interface {
	Register(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) error
}

type AppDeps struct {
	Manager *lobby.Manager
	Config  *configs.AppConfig
	Metrics *metrics.Metrics
	Pow     *pow.Manager

	// Accounts is nil when no database is configured; registered logins are then refused.
	Accounts AccountStore
}
