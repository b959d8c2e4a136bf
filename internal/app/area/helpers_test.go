package area_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hzarena/internal/app/user"
	"hzarena/internal/app/user/usertest"
	"hzarena/internal/pkg/future"
)

func newUser(name string, source user.AuthSource) (*user.User, *usertest.Conn) {
	conn := usertest.NewConn(name+"-addr", name+"-origin")
	return user.New(user.NewIdentity(name, source), conn), conn
}

func guest(name string) (*user.User, *usertest.Conn) {
	return newUser(name, user.SourceGuest)
}

func await[T any](t *testing.T, f *future.Future[T]) T {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := f.Wait(ctx)
	require.NoError(t, err, "future did not resolve in time")
	return v
}
