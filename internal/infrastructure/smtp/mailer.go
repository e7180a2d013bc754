package smtp

import (
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/go-anon-inbox/internal/config"
	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

//go:embed templates/*
var templateFS embed.FS

var (
	verificationText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/verification.txt"))
	verificationHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/verification.html"))
)

const verificationSubject = "Your verification code"

// Mailer sends account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, handle, code string, expiresAt time.Time) error
}

type verificationData struct {
	Handle    string
	Code      string
	ExpiresAt string
}

type mailer struct {
	host     string
	port     int
	from     string
	fromName string
	username string
	password string
	tls      bool
	limiter  *rate.Limiter
	send     func(ctx context.Context, msg *mail.Msg) error
}

// NewMailer builds an SMTP mailer. Outbound messages are paced to
// cfg.SMTPSendRate per second so a burst of signups cannot trip the relay's
// own throttling.
func NewMailer(cfg *config.Config) Mailer {
	limit := rate.Inf
	if cfg.SMTPSendRate > 0 {
		limit = rate.Limit(cfg.SMTPSendRate)
	}
	m := &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		tls:      cfg.SMTPTLS,
		limiter:  rate.NewLimiter(limit, 1),
	}
	m.send = m.dialAndSend
	return m
}

func (m *mailer) SendVerification(ctx context.Context, to, handle, code string, expiresAt time.Time) error {
	msg, err := m.verificationMsg(to, verificationData{
		Handle:    handle,
		Code:      code,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return err
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send slot: %w", err)
	}
	return m.send(ctx, msg)
}

func (m *mailer) verificationMsg(to string, data verificationData) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if m.fromName != "" {
		if err := msg.FromFormat(m.fromName, m.from); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(verificationSubject)
	if err := msg.SetBodyTextTemplate(verificationText, data); err != nil {
		return nil, fmt.Errorf("rendering text body: %w", err)
	}
	if err := msg.AddAlternativeHTMLTemplate(verificationHTML, data); err != nil {
		return nil, fmt.Errorf("rendering html body: %w", err)
	}
	return msg, nil
}

func (m *mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{mail.WithPort(m.port)}
	if m.tls {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// implicit TLS on 465, STARTTLS elsewhere
		if m.port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.username != "" && m.password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}

	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
