package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/go-mail"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
)

// Email is one rendered outbound message
type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered e-mails
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// SMTPSender delivers through an SMTP relay
type SMTPSender struct {
	cfg config.MailConfig
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, email Email) error {
	msg := mail.NewMsg()
	from := email.From
	if from == "" {
		from = s.cfg.DefaultSender
	}
	if err := msg.From(from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(email.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogSender writes e-mails to the log, used when no SMTP relay is configured
type LogSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Email
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	s.mu.Lock()
	s.sent = append(s.sent, email)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Email not sent, no SMTP relay configured",
		"to", email.To,
		"subject", email.Subject,
		"body", email.Body)
	return nil
}

// Sent returns the e-mails written so far
func (s *LogSender) Sent() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Email, len(s.sent))
	copy(out, s.sent)
	return out
}

// NewSender picks SMTP when configured
func NewSender(cfg config.MailConfig, logger *slog.Logger) Sender {
	if cfg.Enabled() {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(logger)
}
