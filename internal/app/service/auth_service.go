package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"fintrack/internal/common"
	"fintrack/internal/common/security"
	"fintrack/internal/domain/model"
	"fintrack/internal/domain/repository"

	"golang.org/x/sync/singleflight"
)

// bcrypt rejects passwords longer than this.
const maxPasswordBytes = 72

type AuthService struct {
	store    Sessioner
	userRepo repository.UserRepository
	tokens   *security.TokenService
	cache    UserCache
	denylist TokenDenylist
	sf       singleflight.Group
}

func NewAuthService(store Sessioner, userRepo repository.UserRepository, tokens *security.TokenService, cache UserCache, denylist TokenDenylist) *AuthService {
	return &AuthService{store: store, userRepo: userRepo, tokens: tokens, cache: cache, denylist: denylist}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)

	v := &common.ValidationError{}
	if r.Name == "" {
		v.Add("name", "field required")
	}
	if r.Username == "" {
		v.Add("username", "field required")
	}
	if r.Email == "" {
		v.Add("email", "field required")
	} else if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		v.Add("email", "value is not a valid email address")
	}
	if r.Password == "" {
		v.Add("password", "field required")
	} else if len(r.Password) > maxPasswordBytes {
		v.Add("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return v.OrNil()
}

type LoginRequest struct {
	Username string `json:"username"` // Can be username or email
	Password string `json:"password"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:           req.Name,
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
	}

	err = s.store.Session(ctx, func(q repository.DBTX) error {
		_, err := s.userRepo.FindByUsername(ctx, q, req.Username)
		if err == nil {
			return fmt.Errorf("username already registered: %w", common.ErrConflict)
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		// The unique constraints still catch concurrent registrations and duplicate emails.
		return s.userRepo.Create(ctx, q, user)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return &MessageResponse{Msg: "user created successfully"}, nil
}

// Login authenticates by username and, failing that, by email.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	identifier := strings.TrimSpace(req.Username)
	v := &common.ValidationError{}
	if identifier == "" {
		v.Add("username", "field required")
	}
	if req.Password == "" {
		v.Add("password", "field required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.store.Session(ctx, func(q repository.DBTX) error {
		var err error
		user, err = s.userRepo.FindByUsername(ctx, q, identifier)
		if errors.Is(err, common.ErrNotFound) {
			user, err = s.userRepo.FindByEmail(ctx, q, identifier)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	slog.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate verifies a bearer token and resolves the account it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*model.User, *security.Claims, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, nil, fmt.Errorf("token expired: %w", common.ErrUnauthorized)
		}
		return nil, nil, fmt.Errorf("invalid token: %w", common.ErrUnauthorized)
	}

	// The deny list is best effort: while Redis is unreachable, tokens are
	// treated as unrevoked and still expire on their own.
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		slog.WarnContext(ctx, "token revocation check failed", "error", err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("token revoked: %w", common.ErrUnauthorized)
	}

	user, err := s.ResolveUser(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// ResolveUser maps a token subject to its account, consulting the cache first.
// A cache hit is confirmed against the store, so deleted accounts stop
// resolving immediately and replaced ones refresh their entry. Concurrent
// lookups for the same subject share one call.
func (s *AuthService) ResolveUser(ctx context.Context, username string) (*model.User, error) {
	v, err, _ := s.sf.Do("user:"+username, func() (interface{}, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		ctx := context.WithoutCancel(ctx)

		cached, err := s.cache.Get(ctx, username)
		if err != nil {
			slog.WarnContext(ctx, "user cache read failed", "error", err)
		}

		var user *model.User
		err = s.store.Session(ctx, func(q repository.DBTX) error {
			if cached != nil {
				exists, err := s.userRepo.Exists(ctx, q, cached.ID, username)
				if err != nil {
					return err
				}
				if exists {
					user = cached
					return nil
				}
			}
			var err error
			user, err = s.userRepo.FindByUsername(ctx, q, username)
			return err
		})
		if err != nil {
			return nil, err
		}

		if user != cached {
			if err := s.cache.Set(ctx, user); err != nil {
				slog.WarnContext(ctx, "user cache write failed", "error", err)
			}
		}
		return user, nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return v.(*model.User), nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *security.Claims) error {
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	slog.InfoContext(ctx, "token revoked", "subject", claims.Subject)
	return nil
}
