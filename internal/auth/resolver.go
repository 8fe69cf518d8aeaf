package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// UserStore reads accounts by id.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
}

// Resolver turns an access token into the acting user.
type Resolver struct {
	tokens *TokenService
	users  UserStore
	cache  *UserCache // optional
	logger *slog.Logger
}

// NewResolver creates a Resolver. cache may be nil.
func NewResolver(tokens *TokenService, users UserStore, cache *UserCache, logger *slog.Logger) *Resolver {
	return &Resolver{tokens: tokens, users: users, cache: cache, logger: logger}
}

// ResolveCaller validates the token and loads the user it was issued for. A bad, expired or
// malformed token and an unknown user all yield an Unauthenticated error. Storage failures
// are returned as they are.
func (r *Resolver) ResolveCaller(ctx context.Context, token string) (model.User, error) {
	userID, err := r.tokens.Validate(token)
	if err != nil {
		return model.User{}, apperror.Unauthenticated("could not validate credentials")
	}

	if r.cache != nil {
		user, ok, err := r.cache.Get(ctx, userID)
		if err != nil {
			r.logger.WarnContext(ctx, "user cache read failed", "user_id", userID, "error", err)
		} else if ok {
			return user, nil
		}
	}

	user, err := r.users.GetByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return model.User{}, apperror.Unauthenticated("could not validate credentials")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("resolve caller: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, user); err != nil {
			r.logger.WarnContext(ctx, "user cache write failed", "user_id", userID, "error", err)
		}
	}
	return user, nil
}

// Forget drops the cached copy of the user after the account has changed.
func (r *Resolver) Forget(ctx context.Context, userID int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, userID); err != nil {
		r.logger.WarnContext(ctx, "user cache delete failed", "user_id", userID, "error", err)
	}
}
