package smtp

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-anon-inbox/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

func testMailer(t *testing.T) (*mailer, *[]*mail.Msg) {
	t.Helper()
	m, ok := NewMailer(&config.Config{
		SMTPHost:     "localhost",
		SMTPPort:     1025,
		SMTPFrom:     "noreply@example.com",
		SMTPFromName: "Anonymous Inbox",
	}).(*mailer)
	require.True(t, ok)
	var sent []*mail.Msg
	m.send = func(_ context.Context, msg *mail.Msg) error {
		sent = append(sent, msg)
		return nil
	}
	return m, &sent
}

func TestSendVerification_RendersBothBodies(t *testing.T) {
	m, sent := testMailer(t)
	exp := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	require.NoError(t, m.SendVerification(context.Background(), "alice@example.com", "alice", "493021", exp))
	require.Len(t, *sent, 1)

	var buf bytes.Buffer
	_, err := (*sent)[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "Subject: "+verificationSubject)
	assert.Contains(t, raw, "<alice@example.com>")
	assert.Contains(t, raw, "Hi alice,")
	assert.Contains(t, raw, "493021")
	assert.Contains(t, raw, "2026-03-01 12:30 UTC")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
}

func TestSendVerification_InvalidRecipient(t *testing.T) {
	m, sent := testMailer(t)
	err := m.SendVerification(context.Background(), "not an address", "alice", "493021", time.Now())
	assert.ErrorContains(t, err, "setting to address")
	assert.Empty(t, *sent)
}

func TestSendVerification_PropagatesTransportError(t *testing.T) {
	m, _ := testMailer(t)
	m.send = func(context.Context, *mail.Msg) error { return errors.New("connection refused") }

	err := m.SendVerification(context.Background(), "alice@example.com", "alice", "493021", time.Now())
	assert.ErrorContains(t, err, "connection refused")
}

func TestSendVerification_PacingHonoursContext(t *testing.T) {
	m, sent := testMailer(t)
	m.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	require.NoError(t, m.SendVerification(context.Background(), "alice@example.com", "alice", "111111", time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.SendVerification(ctx, "bob@example.com", "bob", "222222", time.Now())
	assert.ErrorContains(t, err, "waiting for send slot")
	assert.Len(t, *sent, 1)
}
