package http

import (
	"context"
	"log/slog"

	"github.com/go-anon-inbox/internal/application/account"
	"github.com/go-anon-inbox/internal/application/inbox"
	"github.com/go-anon-inbox/internal/application/message"
	"github.com/go-anon-inbox/internal/application/session"
	"github.com/go-anon-inbox/internal/application/suggestion"
	"github.com/go-anon-inbox/internal/domain"
)

// AccountRepository is everything the router's services need from an account
// store. Both the DynamoDB repo and the in-memory store satisfy it.
type AccountRepository interface {
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	CreatePending(ctx context.Context, a *domain.Account, displaced []*domain.Account) error
	MarkVerified(ctx context.Context, handle, code string) error
	ReissueCode(ctx context.Context, handle string, code domain.PendingCode) (bool, error)
	SetAcceptingMessages(ctx context.Context, handle string, flag bool) error
	AppendMessage(ctx context.Context, handle string, msg domain.Message) error
	RemoveMessage(ctx context.Context, handle, messageID string) error
}

// Deps holds all infrastructure dependencies for the router. Events, Exporter
// and Generator are optional and must be left nil rather than set to a typed
// nil pointer.
type Deps struct {
	Accounts  AccountRepository
	Mailer    account.Mailer
	Tokens    session.TokenProvider
	Events    inbox.EventPublisher
	Exporter  message.Exporter
	Generator suggestion.Generator
	Logger    *slog.Logger
}
