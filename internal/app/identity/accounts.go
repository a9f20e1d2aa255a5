// Package identity turns request credentials into a domain.OwnerIdentity and
// manages the local pseudo-auth accounts.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/PabloGalante/assistant-chat/internal/domain"
	"github.com/PabloGalante/assistant-chat/internal/observability"
)

var ErrMissingCredentials = errors.New("username and password are required")

// Accounts signs local users up and in. A successful login yields an opaque
// token that later requests present as "Authorization: Local <token>".
type Accounts struct {
	store domain.AccountStore
	cost  int
	now   func() time.Time
	log   *slog.Logger
}

type AccountsOption func(*Accounts)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) AccountsOption {
	return func(a *Accounts) { a.cost = cost }
}

func WithClock(now func() time.Time) AccountsOption {
	return func(a *Accounts) { a.now = now }
}

func NewAccounts(store domain.AccountStore, opts ...AccountsOption) *Accounts {
	a := &Accounts{
		store: store,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
		log:   observability.Logger().With("component", "accounts"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Accounts) SignUp(ctx context.Context, username, password string) (domain.OwnerIdentity, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return domain.Anonymous(), ErrMissingCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("hash password: %w", err)
	}

	err = a.store.CreateAccount(ctx, &domain.Account{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    a.now(),
	})
	if err != nil {
		return domain.Anonymous(), err
	}

	a.log.Info("account created", "username", username)
	return domain.LocalAccount(username), nil
}

// Login checks the password and issues a new token.
func (a *Accounts) Login(ctx context.Context, username, password string) (string, domain.OwnerIdentity, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return "", domain.Anonymous(), ErrMissingCredentials
	}

	acc, err := a.store.GetAccount(ctx, username)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return "", domain.Anonymous(), domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", domain.Anonymous(), err
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return "", domain.Anonymous(), domain.ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := a.store.SaveToken(ctx, token, acc.Username); err != nil {
		return "", domain.Anonymous(), fmt.Errorf("save token: %w", err)
	}

	a.log.Info("login", "username", acc.Username)
	return token, domain.LocalAccount(acc.Username), nil
}

func (a *Accounts) Logout(ctx context.Context, token string) error {
	return a.store.DeleteToken(ctx, token)
}

// Lookup resolves a login token. Unknown tokens are ErrAccountNotFound.
func (a *Accounts) Lookup(ctx context.Context, token string) (domain.OwnerIdentity, error) {
	username, err := a.store.LookupToken(ctx, token)
	if err != nil {
		return domain.Anonymous(), err
	}
	return domain.LocalAccount(username), nil
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
