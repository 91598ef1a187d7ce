package middleware

import (
	"context"
	"errors"
	"net/http"

	"fintrack/internal/common"
	"fintrack/internal/common/security"
	"fintrack/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UserCtxKey   contextKey = "user"
	ClaimsCtxKey contextKey = "claims"
)

// TokenAuthenticator resolves a raw bearer token to its account.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, *security.Claims, error)
}

// Authenticator rejects requests without a valid, unrevoked bearer token and
// stores the resolved user and claims in the request context.
func Authenticator(auth TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				common.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			user, claims, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, common.ErrUnauthorized) {
					common.RespondWithDomainError(w, r, err)
					return
				}
				w.Header().Set("WWW-Authenticate", "Bearer")
				common.RespondWithError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, user)
			ctx = context.WithValue(ctx, ClaimsCtxKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the account attached by Authenticator.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserCtxKey).(*model.User)
	return user, ok && user != nil
}

// ClaimsFromContext returns the verified token claims attached by Authenticator.
func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(ClaimsCtxKey).(*security.Claims)
	return claims, ok && claims != nil
}
