package service

import (
	"context"
	"time"

	"fintrack/internal/domain/model"
	"fintrack/internal/domain/repository"
)

// Sessioner hands out a scoped persistence handle for the duration of fn.
type Sessioner interface {
	Session(ctx context.Context, fn func(q repository.DBTX) error) error
}

// UserCache is a best-effort lookaside store for resolved accounts.
type UserCache interface {
	Get(ctx context.Context, username string) (*model.User, error)
	Set(ctx context.Context, user *model.User) error
}

// TokenDenylist tracks revoked bearer tokens by their ID.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
