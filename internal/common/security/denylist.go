package security

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyRevokedToken = "token:revoked:"

// Denylist records revoked token IDs until the tokens would have expired anyway.
type Denylist struct {
	rdb *redis.Client
}

func NewDenylist(rdb *redis.Client) *Denylist {
	return &Denylist{rdb: rdb}
}

// Revoke blocks the token with id jti until expiresAt. Already-expired tokens are ignored.
func (d *Denylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if jti == "" || ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, keyRevokedToken+jti, 1, ttl).Err()
}

// IsRevoked reports whether jti has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := d.rdb.Exists(ctx, keyRevokedToken+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
