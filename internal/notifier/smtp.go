package notifier

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"homeguard/internal/config"
)

// SMTP sends mail through an authenticated submission server with mandatory
// STARTTLS.
type SMTP struct {
	cfg  config.SMTPConfig
	log  *slog.Logger
	send func(ctx context.Context, msg *mail.Msg) error
}

var _ Notifier = (*SMTP)(nil)

func NewSMTP(cfg config.SMTPConfig, log *slog.Logger) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	s := &SMTP{cfg: cfg, log: log.With("component", "smtp")}
	s.send = s.dialAndSend
	return s, nil
}

func (s *SMTP) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(30 * time.Second),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, msg)
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := buildMessage(msg)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := s.send(ctx, m); err != nil {
		s.log.Error("mail_send_failed",
			"to", msg.To,
			"subject", msg.Subject,
			"error_message", err.Error(),
		)
		return fmt.Errorf("send mail: %w", err)
	}
	s.log.Info("mail_sent",
		"to", msg.To,
		"attachments", len(msg.Attachments),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func buildMessage(msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipient
	}
	for _, to := range msg.To {
		if to == "" {
			return nil, ErrNoRecipient
		}
	}
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	for _, a := range msg.Attachments {
		var opts []mail.FileOption
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := m.AttachReader(a.Name, bytes.NewReader(a.Data), opts...); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return m, nil
}
