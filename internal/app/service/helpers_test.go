package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/common/security"
	"fintrack/internal/domain/model"
	"fintrack/internal/domain/repository"
	"fintrack/internal/platform/cache"
	"fintrack/internal/platform/config"
	"fintrack/internal/platform/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-test-secret-with-32-bytes!"

type testEnv struct {
	store  *database.Store
	mr     *miniredis.Miniredis
	tokens *security.TokenService
	auth   *AuthService
	ops    *OperationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		DBDriver:       repository.DialectSQLite,
		SQLiteDBPath:   filepath.Join(t.TempDir(), "fintrack.db"),
		DBMaxOpenConns: 4,
	}
	store, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	tokens, err := security.NewTokenService("HS256", []byte(testSecret), 30*time.Minute)
	require.NoError(t, err)

	return &testEnv{
		store:  store,
		mr:     mr,
		tokens: tokens,
		auth: NewAuthService(store, repository.NewSQLUserRepository(store.Dialect), tokens,
			cache.NewUserCache(rdb, time.Minute), security.NewDenylist(rdb)),
		ops: NewOperationService(store, repository.NewSQLOperationRepository(store.Dialect)),
	}
}

func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.Register(ctx, RegisterRequest{
		Name:     "User " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: "pw-" + username,
	})
	require.NoError(t, err)
	user, err := e.auth.ResolveUser(ctx, username)
	require.NoError(t, err)
	return user
}

func money(t *testing.T, s string) model.Money {
	t.Helper()
	m, err := model.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func ptr[T any](v T) *T { return &v }
