package domain

import (
	"fmt"
	"time"
)

// Principal is the verified identity carried by a session token. It is a
// snapshot taken at login: IsAcceptingMessages may lag the stored value until
// the next login.
type Principal struct {
	AccountID           string    `json:"account_id"`
	Handle              string    `json:"handle"`
	IsVerified          bool      `json:"is_verified"`
	IsAcceptingMessages bool      `json:"is_accepting_messages"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// Owns reports whether the principal may act on the account behind handle.
func (p *Principal) Owns(handle string) bool {
	return p != nil && p.Handle != "" && p.Handle == handle
}

// Authorize fails with ErrUnauthorized unless p owns handle.
func Authorize(p *Principal, handle string) error {
	if !p.Owns(handle) {
		return fmt.Errorf("act on %q: %w", handle, ErrUnauthorized)
	}
	return nil
}
