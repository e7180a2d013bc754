package message

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-anon-inbox/internal/domain"
)

type Store interface {
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)
	RemoveMessage(ctx context.Context, handle, messageID string) error
}

// Exporter writes an export object and hands out a time-limited link to it.
type Exporter interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type ExportResult struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Count     int       `json:"count"`
}

type Service interface {
	ListMessages(ctx context.Context, p *domain.Principal, handle string) ([]domain.Message, error)
	DeleteMessage(ctx context.Context, p *domain.Principal, handle, messageID string) error
	Export(ctx context.Context, p *domain.Principal, handle string) (*ExportResult, error)
}

type service struct {
	store     Store
	exporter  Exporter
	exportTTL time.Duration
	now       func() time.Time
}

// NewService wires the lifecycle manager. exporter may be nil, in which case
// Export reports ErrExportUnavailable.
func NewService(store Store, exporter Exporter, exportTTL time.Duration) Service {
	return &service{store: store, exporter: exporter, exportTTL: exportTTL, now: func() time.Time { return time.Now().UTC() }}
}

// ListMessages returns the owner's inbox, newest first.
func (s *service) ListMessages(ctx context.Context, p *domain.Principal, handle string) ([]domain.Message, error) {
	if err := domain.Authorize(p, handle); err != nil {
		return nil, err
	}
	a, err := s.store.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	return a.NewestFirst(), nil
}

// DeleteMessage removes one message from the owner's inbox. An id that is not
// in this inbox, including one belonging to someone else, is ErrMessageNotFound.
func (s *service) DeleteMessage(ctx context.Context, p *domain.Principal, handle, messageID string) error {
	if err := domain.Authorize(p, handle); err != nil {
		return err
	}
	if messageID == "" {
		return fmt.Errorf("delete: %w", domain.ErrMessageNotFound)
	}
	if err := s.store.RemoveMessage(ctx, handle, messageID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "message deleted", "handle", handle, "message_id", messageID)
	return nil
}

type exportDocument struct {
	Handle     string           `json:"handle"`
	ExportedAt time.Time        `json:"exported_at"`
	Messages   []domain.Message `json:"messages"`
}

// Export snapshots the owner's inbox as JSON and returns a presigned link.
func (s *service) Export(ctx context.Context, p *domain.Principal, handle string) (*ExportResult, error) {
	if err := domain.Authorize(p, handle); err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, fmt.Errorf("export: not configured: %w", domain.ErrExportUnavailable)
	}
	msgs, err := s.ListMessages(ctx, p, handle)
	if err != nil {
		return nil, err
	}

	now := s.now()
	body, err := json.Marshal(exportDocument{Handle: handle, ExportedAt: now, Messages: msgs})
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	key := fmt.Sprintf("exports/%s/%s.json", p.AccountID, now.Format("20060102T150405Z"))
	if _, err := s.exporter.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		slog.WarnContext(ctx, "export upload failed", "handle", handle, "err", err)
		return nil, fmt.Errorf("export: %v: %w", err, domain.ErrExportUnavailable)
	}
	url, err := s.exporter.PresignedURL(ctx, key, s.exportTTL)
	if err != nil {
		return nil, fmt.Errorf("export: %v: %w", err, domain.ErrExportUnavailable)
	}
	return &ExportResult{URL: url, ExpiresAt: now.Add(s.exportTTL), Count: len(msgs)}, nil
}
