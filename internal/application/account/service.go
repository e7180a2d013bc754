package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-anon-inbox/internal/application/credential"
	"github.com/go-anon-inbox/internal/application/otp"
	"github.com/go-anon-inbox/internal/domain"
)

// Store is the slice of the account store the verification flow needs.
type Store interface {
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)
	MarkVerified(ctx context.Context, handle, code string) error
	ReissueCode(ctx context.Context, handle string, code domain.PendingCode) (bool, error)
}

// Mailer delivers verification codes.
type Mailer interface {
	SendVerification(ctx context.Context, to, handle, code string, expiresAt time.Time) error
}

// Delivery reports what happened to the verification email. Err is set when
// the code was stored but could not be sent.
type Delivery struct {
	Sent bool
	Err  error
}

type SignupResult struct {
	Account  *domain.Account
	Delivery Delivery
}

type Service interface {
	Signup(ctx context.Context, req domain.CreateAccountRequest) (*SignupResult, error)
	Verify(ctx context.Context, handle, code string) error
	ResendCode(ctx context.Context, handle string) (Delivery, error)
	HandleAvailable(ctx context.Context, handle string) (bool, error)
}

type service struct {
	creds  *credential.Service
	store  Store
	otp    *otp.Verifier
	mailer Mailer
}

func NewService(creds *credential.Service, store Store, verifier *otp.Verifier, mailer Mailer) Service {
	return &service{creds: creds, store: store, otp: verifier, mailer: mailer}
}

// Signup stores the pending account together with its code, then sends the
// code. A failed send leaves the account in place and is reported in Delivery.
func (s *service) Signup(ctx context.Context, req domain.CreateAccountRequest) (*SignupResult, error) {
	code, err := s.otp.Issue()
	if err != nil {
		return nil, err
	}
	a, err := s.creds.CreateAccount(ctx, req, code)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "account created", "handle", a.Handle, "account_id", a.AccountID)
	return &SignupResult{Account: a, Delivery: s.deliver(ctx, a, code)}, nil
}

// Verify checks code against the pending one and flips the account to
// verified. Re-submitting after success is a no-op.
func (s *service) Verify(ctx context.Context, handle, code string) error {
	handle = strings.TrimSpace(handle)
	a, err := s.store.GetByHandle(ctx, handle)
	if err != nil {
		return err
	}
	res, err := s.otp.Check(a, strings.TrimSpace(code))
	if err != nil {
		return err
	}
	if res == otp.AlreadyVerified {
		return nil
	}

	err = s.store.MarkVerified(ctx, handle, *a.VerificationCode)
	if errors.Is(err, domain.ErrCodeMismatch) {
		// Lost a race: either a concurrent verify won, or a resend replaced the code.
		cur, getErr := s.store.GetByHandle(ctx, handle)
		if getErr == nil && cur.IsVerified {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "account verified", "handle", handle)
	return nil
}

// ResendCode issues a fresh code and expiry for an unverified account.
// Verified accounts get nothing and no error.
func (s *service) ResendCode(ctx context.Context, handle string) (Delivery, error) {
	handle = strings.TrimSpace(handle)
	a, err := s.store.GetByHandle(ctx, handle)
	if err != nil {
		return Delivery{}, err
	}
	if a.IsVerified {
		return Delivery{}, nil
	}
	code, err := s.otp.Issue()
	if err != nil {
		return Delivery{}, err
	}
	issued, err := s.store.ReissueCode(ctx, handle, code)
	if err != nil {
		return Delivery{}, err
	}
	if !issued {
		return Delivery{}, nil
	}
	return s.deliver(ctx, a, code), nil
}

func (s *service) HandleAvailable(ctx context.Context, handle string) (bool, error) {
	return s.creds.HandleAvailable(ctx, handle)
}

func (s *service) deliver(ctx context.Context, a *domain.Account, code domain.PendingCode) Delivery {
	if err := s.mailer.SendVerification(ctx, a.Email, a.Handle, code.Code, code.ExpiresAt); err != nil {
		slog.WarnContext(ctx, "verification email failed", "handle", a.Handle, "err", err)
		return Delivery{Err: fmt.Errorf("send to %s: %v: %w", a.Handle, err, domain.ErrDeliveryFailed)}
	}
	return Delivery{Sent: true}
}
