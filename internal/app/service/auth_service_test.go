package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/common"
	"fintrack/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := RegisterRequest{Name: "Ana", Username: "ana", Email: "ana@example.com", Password: "secret"}

	resp, err := env.auth.Register(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Msg)

	req.Email = "other@example.com"
	_, err = env.auth.Register(ctx, req)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterRequest{Name: "Ana", Username: "ana", Email: "shared@example.com", Password: "secret"})
	require.NoError(t, err)
	_, err = env.auth.Register(ctx, RegisterRequest{Name: "Bia", Username: "bia", Email: "shared@example.com", Password: "secret"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Register(context.Background(), RegisterRequest{Username: " ", Email: "not-an-email"})
	require.ErrorIs(t, err, common.ErrValidation)

	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	assert.Equal(t, map[string]bool{"name": true, "username": true, "email": true, "password": true}, fields)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterRequest{
		Name: "Olga", Username: "olga", Email: "olga@example.com", Password: strings.Repeat("a", 80),
	})
	require.ErrorIs(t, err, common.ErrValidation)
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "password", verr.Fields[0].Field)

	_, err = env.auth.Register(ctx, RegisterRequest{
		Name: "Olga", Username: "olga", Email: "olga@example.com", Password: strings.Repeat("a", 72),
	})
	assert.NoError(t, err)
}

func TestRegisterStoresDigestNotPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "carla")

	var stored string
	require.NoError(t, env.store.DB.QueryRow(`SELECT hashed_password FROM users WHERE username = 'carla'`).Scan(&stored))
	assert.NotEqual(t, "pw-carla", stored)
	assert.NotContains(t, stored, "pw-carla")
}

func TestLoginIssuesBearerToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "dora")

	resp, err := env.auth.Login(context.Background(), LoginRequest{Username: "dora", Password: "pw-dora"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)

	claims, err := env.tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "dora", claims.Subject)

	user, _, err := env.auth.Authenticate(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "dora", user.Username)
}

func TestLoginFallsBackToEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "eva")

	resp, err := env.auth.Login(context.Background(), LoginRequest{Username: "eva@example.com", Password: "pw-eva"})
	require.NoError(t, err)
	claims, err := env.tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "eva", claims.Subject, "subject is always the username")
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "fabi")
	ctx := context.Background()

	_, err := env.auth.Login(ctx, LoginRequest{Username: "fabi", Password: "wrong"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, LoginRequest{Username: "nobody", Password: "pw-fabi"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, LoginRequest{})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.tokens.Issue("ghost")
	require.NoError(t, err)

	_, _, err = env.auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.auth.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "juno")

	past := time.Now().Add(-time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "juno",
		"iat": past.Add(-30 * time.Minute).Unix(),
		"exp": past.Unix(),
		"jti": "expired-token",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, _, err = env.auth.Authenticate(context.Background(), expired)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "gabi")
	ctx := context.Background()

	resp, err := env.auth.Login(ctx, LoginRequest{Username: "gabi", Password: "pw-gabi"})
	require.NoError(t, err)
	_, claims, err := env.auth.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, claims))
	_, _, err = env.auth.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestResolveUserUsesCache(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "hana")
	assert.True(t, env.mr.Exists("user:username:hana"))

	got, err := env.auth.ResolveUser(context.Background(), "hana")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.HashedPassword, "cached entries carry no digest")
}

func TestAuthenticateRejectsDeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "gone")
	ctx := context.Background()

	resp, err := env.auth.Login(ctx, LoginRequest{Username: "gone", Password: "pw-gone"})
	require.NoError(t, err)
	_, _, err = env.auth.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	require.True(t, env.mr.Exists("user:username:gone"))

	_, err = env.store.DB.Exec(`DELETE FROM users WHERE id = ?`, user.ID)
	require.NoError(t, err)

	_, _, err = env.auth.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestResolveUserIgnoresCacheOfReplacedAccount(t *testing.T) {
	env := newTestEnv(t)
	old := env.register(t, "lena")

	_, err := env.store.DB.Exec(`DELETE FROM users WHERE id = ?`, old.ID)
	require.NoError(t, err)
	_, err = env.auth.Register(context.Background(), RegisterRequest{
		Name: "Lena", Username: "lena", Email: "lena2@example.com", Password: "pw",
	})
	require.NoError(t, err)

	// The cache still holds the deleted id; it must be replaced, not trusted.
	got, err := env.auth.ResolveUser(context.Background(), "lena")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, got.ID)

	raw, err := env.mr.Get("user:username:lena")
	require.NoError(t, err)
	assert.Contains(t, raw, "lena2@example.com")
}

func TestResolveUserIgnoresCallerCancellation(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "mila")
	env.mr.FlushAll()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := env.auth.ResolveUser(ctx, "mila")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthenticateSurvivesDenylistOutage(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "nora")
	ctx := context.Background()

	resp, err := env.auth.Login(ctx, LoginRequest{Username: "nora", Password: "pw-nora"})
	require.NoError(t, err)
	env.mr.Close()

	user, claims, err := env.auth.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "nora", user.Username)
	assert.Equal(t, "nora", claims.Subject)
}

func TestResolveUserSurvivesCacheOutage(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "iris")
	env.mr.Close()

	got, err := env.auth.ResolveUser(context.Background(), "iris")
	require.NoError(t, err)
	assert.IsType(t, &model.User{}, got)
}

func TestResolveUserConcurrentMisses(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "kiki")
	env.mr.FlushAll()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := env.auth.ResolveUser(context.Background(), "kiki")
			if err == nil && got.ID != user.ID {
				err = errors.New("resolved the wrong user")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, env.mr.Exists("user:username:kiki"))
}
