// Package memory holds a process-local account store with the same
// semantics as the DynamoDB repository. It backs STORE_DRIVER=memory and the
// end-to-end HTTP tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-anon-inbox/internal/domain"
)

// AccountStore keeps accounts by handle plus an email → handle index.
// One mutex serializes every mutation, which makes each of them atomic per
// account the same way a conditional single-item update is.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	emails   map[string]string
	now      func() time.Time
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*domain.Account),
		emails:   make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountStore) GetByHandle(_ context.Context, handle string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[handle]
	if !ok {
		return nil, fmt.Errorf("handle %q: %w", handle, domain.ErrAccountNotFound)
	}
	return clone(a), nil
}

func (s *AccountStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handle, ok := s.emails[email]
	if !ok {
		return nil, fmt.Errorf("email lookup: %w", domain.ErrAccountNotFound)
	}
	return clone(s.accounts[handle]), nil
}

func (s *AccountStore) CreatePending(_ context.Context, acct *domain.Account, displaced []*domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := make(map[string]bool, len(displaced))
	for _, d := range displaced {
		if d == nil {
			continue
		}
		cur, ok := s.accounts[d.Handle]
		if !ok || cur.IsVerified || cur.Email != d.Email {
			return fmt.Errorf("create account: %w", domain.ErrSignupConflict)
		}
		allowed[d.Handle] = true
	}
	if cur, ok := s.accounts[acct.Handle]; ok && !allowed[cur.Handle] {
		return fmt.Errorf("create account: %w", domain.ErrDuplicateHandle)
	}
	if owner, ok := s.emails[acct.Email]; ok && !allowed[owner] {
		return fmt.Errorf("create account: %w", domain.ErrDuplicateEmail)
	}

	for h := range allowed {
		delete(s.emails, s.accounts[h].Email)
		delete(s.accounts, h)
	}
	s.accounts[acct.Handle] = clone(acct)
	s.emails[acct.Email] = acct.Handle
	return nil
}

func (s *AccountStore) MarkVerified(_ context.Context, handle, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[handle]
	if !ok || a.IsVerified || a.VerificationCode == nil || *a.VerificationCode != code {
		return fmt.Errorf("mark verified: %w", domain.ErrCodeMismatch)
	}
	a.IsVerified = true
	a.UpdatedAt = s.now()
	return nil
}

func (s *AccountStore) ReissueCode(_ context.Context, handle string, code domain.PendingCode) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[handle]
	if !ok {
		return false, fmt.Errorf("reissue code: %w", domain.ErrAccountNotFound)
	}
	if a.IsVerified {
		return false, nil
	}
	c := code.Code
	a.VerificationCode = &c
	a.VerificationCodeExpiry = code.ExpiresAt
	a.UpdatedAt = s.now()
	return true, nil
}

func (s *AccountStore) SetAcceptingMessages(_ context.Context, handle string, flag bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[handle]
	if !ok {
		return fmt.Errorf("set accepting messages: %w", domain.ErrAccountNotFound)
	}
	a.IsAcceptingMessages = flag
	a.UpdatedAt = s.now()
	return nil
}

func (s *AccountStore) AppendMessage(_ context.Context, handle string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[handle]
	if !ok {
		return fmt.Errorf("append message: %w", domain.ErrRecipientNotFound)
	}
	if !a.IsAcceptingMessages {
		return fmt.Errorf("append message: %w", domain.ErrMessagesClosed)
	}
	a.Messages = append(a.Messages, msg)
	a.UpdatedAt = s.now()
	return nil
}

func (s *AccountStore) RemoveMessage(_ context.Context, handle, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[handle]
	if !ok {
		return fmt.Errorf("remove message: %w", domain.ErrAccountNotFound)
	}
	idx := a.IndexOfMessage(messageID)
	if idx < 0 {
		return fmt.Errorf("remove message %s: %w", messageID, domain.ErrMessageNotFound)
	}
	a.Messages = append(a.Messages[:idx:idx], a.Messages[idx+1:]...)
	a.UpdatedAt = s.now()
	return nil
}

// clone returns a copy that callers may mutate without touching the store.
func clone(a *domain.Account) *domain.Account {
	c := *a
	if a.VerificationCode != nil {
		code := *a.VerificationCode
		c.VerificationCode = &code
	}
	if a.Messages != nil {
		c.Messages = append([]domain.Message(nil), a.Messages...)
	}
	return &c
}
