package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-anon-inbox/internal/domain"
	"github.com/go-anon-inbox/internal/pkg/validate"
)

// AccountFinder resolves login identifiers and checks passwords.
type AccountFinder interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	VerifyPassword(a *domain.Account, candidate string) (bool, error)
}

// TokenProvider signs and verifies session tokens.
type TokenProvider interface {
	Sign(a *domain.Account) (string, time.Time, error)
	Verify(token string) (*domain.Principal, error)
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Validate(ctx context.Context, token string) (*domain.Principal, error)
}

type service struct {
	accounts AccountFinder
	tokens   TokenProvider
}

func NewService(accounts AccountFinder, tokens TokenProvider) Service {
	return &service{accounts: accounts, tokens: tokens}
}

// Login refuses unverified accounts before looking at the password.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, domain.ErrInvalidInput.WithDetail(err.Error())
	}
	a, err := s.accounts.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}
	if !a.IsVerified {
		return nil, fmt.Errorf("login %q: %w", a.Handle, domain.ErrNotVerified)
	}
	ok, err := s.accounts.VerifyPassword(a, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("login %q: %w", a.Handle, domain.ErrBadCredentials)
	}
	token, exp, err := s.tokens.Sign(a)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Account: a}, nil
}

func (s *service) Validate(_ context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("no token: %w", domain.ErrInvalidSession)
	}
	p, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidSession)
	}
	if !p.IsVerified {
		return nil, fmt.Errorf("token for unverified account: %w", domain.ErrInvalidSession)
	}
	return p, nil
}
