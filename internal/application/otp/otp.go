// Package otp issues and checks the six-digit codes that verify an account.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/go-anon-inbox/internal/domain"
)

const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// Result tells the caller whether a passing Check still has to be persisted.
type Result int

const (
	// AlreadyVerified means the account needs no further write.
	AlreadyVerified Result = iota
	// Matched means the submitted code is correct and unexpired.
	Matched
)

type Verifier struct {
	ttl time.Duration
	now func() time.Time
}

func NewVerifier(ttl time.Duration) *Verifier {
	return &Verifier{ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Issue draws a uniformly random code and its expiry.
func (v *Verifier) Issue() (domain.PendingCode, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return domain.PendingCode{}, fmt.Errorf("generate code: %w", err)
	}
	return domain.PendingCode{
		Code:      fmt.Sprintf("%0*d", codeDigits, n.Int64()),
		ExpiresAt: v.now().Add(v.ttl),
	}, nil
}

// Check applies the verification rules in order: a verified account passes
// whatever was submitted, an expired or missing code is ErrExpiredCode, and
// a wrong code is ErrCodeMismatch. It never mutates the account.
func (v *Verifier) Check(a *domain.Account, submitted string) (Result, error) {
	if a.IsVerified {
		return AlreadyVerified, nil
	}
	if a.VerificationCode == nil || v.now().After(a.VerificationCodeExpiry) {
		return 0, fmt.Errorf("check code for %q: %w", a.Handle, domain.ErrExpiredCode)
	}
	if subtle.ConstantTimeCompare([]byte(*a.VerificationCode), []byte(submitted)) != 1 {
		return 0, fmt.Errorf("check code for %q: %w", a.Handle, domain.ErrCodeMismatch)
	}
	return Matched, nil
}
