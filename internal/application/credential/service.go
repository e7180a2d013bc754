package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-anon-inbox/internal/domain"
	"github.com/go-anon-inbox/internal/pkg/id"
	"github.com/go-anon-inbox/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Store is the slice of the account store the credential service needs.
type Store interface {
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	CreatePending(ctx context.Context, acct *domain.Account, displaced []*domain.Account) error
}

// Service owns account identity: uniqueness of handle and email, password
// hashing, and lookup by either identifier.
type Service struct {
	store Store
	cost  int
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost, now: func() time.Time { return time.Now().UTC() }}
}

// CreateAccount registers an unverified account carrying code. A handle or
// email held by a verified account is a conflict; one held by a pending
// signup is taken over.
func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest, code domain.PendingCode) (*domain.Account, error) {
	req.Handle = strings.TrimSpace(req.Handle)
	req.Email = NormalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, domain.ErrInvalidInput.WithDetail(err.Error())
	}

	var displaced []*domain.Account
	var handleOwner *domain.Account

	byHandle, err := s.lookup(ctx, s.store.GetByHandle, req.Handle)
	if err != nil {
		return nil, err
	}
	if byHandle != nil {
		if byHandle.IsVerified {
			return nil, fmt.Errorf("create account %q: %w", req.Handle, domain.ErrDuplicateHandle)
		}
		handleOwner = byHandle
		displaced = append(displaced, byHandle)
	}

	byEmail, err := s.lookup(ctx, s.store.GetByEmail, req.Email)
	if err != nil {
		return nil, err
	}
	if byEmail != nil {
		if byEmail.IsVerified {
			return nil, fmt.Errorf("create account %q: %w", req.Handle, domain.ErrDuplicateEmail)
		}
		if byHandle == nil || byEmail.Handle != byHandle.Handle {
			displaced = append(displaced, byEmail)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	c := code.Code
	acct := &domain.Account{
		AccountID:              id.New(),
		Handle:                 req.Handle,
		Email:                  req.Email,
		PasswordHash:           string(hash),
		VerificationCode:       &c,
		VerificationCodeExpiry: code.ExpiresAt,
		IsVerified:             false,
		IsAcceptingMessages:    true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if handleOwner != nil {
		acct.AccountID = handleOwner.AccountID
		acct.CreatedAt = handleOwner.CreatedAt
	}

	if err := s.store.CreatePending(ctx, acct, displaced); err != nil {
		return nil, err
	}
	return acct, nil
}

// FindByIdentifier resolves a handle first and an email second.
func (s *Service) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("find account: %w", domain.ErrAccountNotFound)
	}
	a, err := s.lookup(ctx, s.store.GetByHandle, identifier)
	if err != nil || a != nil {
		return a, err
	}
	if strings.Contains(identifier, "@") {
		a, err = s.lookup(ctx, s.store.GetByEmail, NormalizeEmail(identifier))
		if err != nil || a != nil {
			return a, err
		}
	}
	return nil, fmt.Errorf("find account: %w", domain.ErrAccountNotFound)
}

// VerifyPassword compares candidate against the stored bcrypt hash. A wrong
// password is (false, nil); an unusable hash is ErrCredentialCorrupt.
func (s *Service) VerifyPassword(a *domain.Account, candidate string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(candidate))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("account %s: %w", a.AccountID, domain.ErrCredentialCorrupt)
	}
}

// HandleAvailable reports whether handle can be claimed: nobody holds it, or
// only a pending signup does.
func (s *Service) HandleAvailable(ctx context.Context, handle string) (bool, error) {
	handle = strings.TrimSpace(handle)
	if !validate.Handle(handle) {
		return false, domain.ErrInvalidInput.WithDetail("handle must be 2-20 letters, digits or underscores")
	}
	a, err := s.lookup(ctx, s.store.GetByHandle, handle)
	if err != nil {
		return false, err
	}
	return a == nil || !a.IsVerified, nil
}

// lookup turns a not-found miss into (nil, nil).
func (s *Service) lookup(ctx context.Context, get func(context.Context, string) (*domain.Account, error), key string) (*domain.Account, error) {
	a, err := get(ctx, key)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return a, nil
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
