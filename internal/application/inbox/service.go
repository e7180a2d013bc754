package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-anon-inbox/internal/domain"
	"github.com/go-anon-inbox/internal/pkg/id"
)

const (
	minContentRunes = 10
	maxContentRunes = 300

	publishTimeout = 3 * time.Second
)

type Store interface {
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)
	AppendMessage(ctx context.Context, handle string, msg domain.Message) error
	SetAcceptingMessages(ctx context.Context, handle string, flag bool) error
}

// EventPublisher receives inbox events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.InboxEvent) error
}

type Service interface {
	AcceptMessage(ctx context.Context, handle, content string) (*domain.Message, error)
	SetAcceptingMessages(ctx context.Context, p *domain.Principal, handle string, flag bool) (bool, error)
	GetAcceptingStatus(ctx context.Context, p *domain.Principal, handle string) (bool, error)
}

type service struct {
	store  Store
	events EventPublisher
	now    func() time.Time
}

// NewService wires the inbox. events may be nil.
func NewService(store Store, events EventPublisher) Service {
	return &service{store: store, events: events, now: func() time.Time { return time.Now().UTC() }}
}

// AcceptMessage appends an anonymous message to handle's inbox. The append
// itself re-checks the acceptance flag, so a toggle racing this call is honoured.
func (s *service) AcceptMessage(ctx context.Context, handle, content string) (*domain.Message, error) {
	handle = strings.TrimSpace(handle)
	a, err := s.store.GetByHandle(ctx, handle)
	if err != nil {
		return nil, recipientErr(err)
	}
	if !a.IsAcceptingMessages {
		return nil, fmt.Errorf("deliver to %q: %w", handle, domain.ErrMessagesClosed)
	}
	content, err = CheckContent(content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	msg := domain.Message{MessageID: id.NewAt(now), Content: content, CreatedAt: now}
	if err := s.store.AppendMessage(ctx, handle, msg); err != nil {
		return nil, recipientErr(err)
	}
	s.publish(ctx, domain.InboxEvent{
		Type:       domain.EventMessageReceived,
		AccountID:  a.AccountID,
		Handle:     handle,
		MessageID:  msg.MessageID,
		OccurredAt: now,
	})
	return &msg, nil
}

func (s *service) SetAcceptingMessages(ctx context.Context, p *domain.Principal, handle string, flag bool) (bool, error) {
	if err := domain.Authorize(p, handle); err != nil {
		return false, err
	}
	if err := s.store.SetAcceptingMessages(ctx, handle, flag); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "acceptance toggled", "handle", handle, "accepting", flag)
	return flag, nil
}

func (s *service) GetAcceptingStatus(ctx context.Context, p *domain.Principal, handle string) (bool, error) {
	if err := domain.Authorize(p, handle); err != nil {
		return false, err
	}
	a, err := s.store.GetByHandle(ctx, handle)
	if err != nil {
		return false, err
	}
	return a.IsAcceptingMessages, nil
}

// CheckContent trims content and enforces the length policy in runes.
func CheckContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	if n < minContentRunes || n > maxContentRunes {
		return "", domain.ErrInvalidContent.WithDetail(
			fmt.Sprintf("content must be %d-%d characters, got %d", minContentRunes, maxContentRunes, n))
	}
	return content, nil
}

func (s *service) publish(ctx context.Context, ev domain.InboxEvent) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "inbox event not published", "handle", ev.Handle, "message_id", ev.MessageID, "err", err)
	}
}

// recipientErr reports a missing account as RecipientNotFound on the send path.
func recipientErr(err error) error {
	if errors.Is(err, domain.ErrAccountNotFound) {
		return fmt.Errorf("deliver: %w", domain.ErrRecipientNotFound)
	}
	return err
}
