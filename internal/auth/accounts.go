package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// TokenType is returned to the client together with every access token.
const TokenType = "bearer"

// AccountStore is the part of the user store needed for signup, login and email
// confirmation.
type AccountStore interface {
	UserStore
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, username, email, hashedPassword string, now time.Time) (model.User, error)
	Confirm(ctx context.Context, id int64, now time.Time) error
}

// ConfirmationSender hands the confirmation token of a new account to its owner. Delivery
// happens in the background, so failures are the sender's business.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, user model.User, token string)
}

// LogSender writes confirmation tokens to the debug log. It stands in for a mail service.
type LogSender struct {
	Logger *slog.Logger
}

func (l LogSender) SendConfirmation(ctx context.Context, user model.User, token string) {
	l.Logger.DebugContext(ctx, "email confirmation token issued",
		"user_id", user.ID,
		"path", "/api/auth/confirmed_email/"+token,
	)
}

// Accounts registers users, logs them in and confirms their email addresses.
type Accounts struct {
	users     AccountStore
	passwords *PasswordService
	tokens    *TokenService
	sender    ConfirmationSender
	now       func() time.Time
}

// AccountsOption configures Accounts.
type AccountsOption func(*Accounts)

// WithConfirmationSender sets who delivers confirmation tokens. By default they are logged
// with slog.Default.
func WithConfirmationSender(sender ConfirmationSender) AccountsOption {
	return func(a *Accounts) { a.sender = sender }
}

func NewAccounts(users AccountStore, passwords *PasswordService, tokens *TokenService, opts ...AccountsOption) *Accounts {
	a := &Accounts{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		sender:    LogSender{Logger: slog.Default()},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Signup creates a new account. Username and email address must not be registered yet.
func (a *Accounts) Signup(ctx context.Context, in model.SignupInput) (model.User, error) {
	if err := in.Validate(); err != nil {
		return model.User{}, err
	}
	exists, err := a.users.Exists(ctx, in.Username, in.Email)
	if err != nil {
		return model.User{}, err
	}
	if exists {
		return model.User{}, apperror.Conflict("username or email already registered")
	}
	hashed, err := a.passwords.Hash(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("signup: %w", err)
	}
	user, err := a.users.Create(ctx, in.Username, in.Email, hashed, a.now().UTC().Truncate(time.Second))
	if err != nil {
		return model.User{}, err
	}
	token, err := a.tokens.GenerateConfirmation(user.Email)
	if err != nil {
		return model.User{}, fmt.Errorf("signup: %w", err)
	}
	a.sender.SendConfirmation(ctx, user, token)
	return user, nil
}

// Login checks the credentials and issues an access token. Unknown users and wrong
// passwords are indistinguishable for the client.
func (a *Accounts) Login(ctx context.Context, in model.LoginInput) (model.Token, error) {
	if err := in.Validate(); err != nil {
		return model.Token{}, err
	}
	user, err := a.users.GetByUsername(ctx, in.Username)
	if errors.Is(err, apperror.ErrNotFound) {
		return model.Token{}, apperror.Unauthenticated("incorrect username or password")
	}
	if err != nil {
		return model.Token{}, err
	}
	if err := a.passwords.Verify(user.HashedPassword, in.Password); err != nil {
		return model.Token{}, apperror.Unauthenticated("incorrect username or password")
	}
	token, err := a.tokens.Generate(user.ID)
	if err != nil {
		return model.Token{}, err
	}
	return model.Token{AccessToken: token, TokenType: TokenType}, nil
}

// ConfirmEmail marks the account the confirmation token was issued for as confirmed. A bad or
// expired token and an address that is no longer registered are a validation error of the
// token. Confirming twice is not an error.
func (a *Accounts) ConfirmEmail(ctx context.Context, token string) (model.User, error) {
	email, err := a.tokens.ValidateConfirmation(token)
	if err != nil {
		return model.User{}, apperror.Invalid("token", "invalid or expired confirmation token")
	}
	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return model.User{}, apperror.Invalid("token", "invalid or expired confirmation token")
	}
	if err != nil {
		return model.User{}, err
	}
	if user.Confirmed {
		return user, nil
	}
	now := a.now().UTC().Truncate(time.Second)
	if err := a.users.Confirm(ctx, user.ID, now); err != nil {
		return model.User{}, err
	}
	user.Confirmed = true
	user.UpdatedAt = now
	return user, nil
}
