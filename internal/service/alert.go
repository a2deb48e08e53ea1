package service

import (
	"context"
	"fmt"
	"time"

	"homeguard/internal/config"
	"homeguard/internal/notifier"
)

const (
	alertSubject        = "Security Alert: Unknown Face Detected"
	alertAttachmentName = "unknown_face.jpg"
)

// Alert is an unknown-face report from the recognizer.
type Alert struct {
	Image      []byte
	Timestamp  string
	ReportedBy string
}

type AlertService interface {
	SendUnknownFaceAlert(ctx context.Context, a Alert) error
}

type alertService struct {
	notifier notifier.Notifier
	cfg      config.AlertConfig
	now      func() time.Time
}

func NewAlertService(n notifier.Notifier, cfg config.AlertConfig) AlertService {
	return &alertService{notifier: n, cfg: cfg, now: time.Now}
}

func (s *alertService) SendUnknownFaceAlert(ctx context.Context, a Alert) error {
	if len(a.Image) == 0 {
		return fmt.Errorf("%w: image is required", ErrInvalidInput)
	}
	if s.cfg.Recipient == "" {
		return notifier.ErrNoRecipient
	}
	ts := a.Timestamp
	if ts == "" {
		ts = s.now().UTC().Format(time.RFC3339)
	}

	body := fmt.Sprintf("An unknown face was detected by your security system at %s.\n\n"+
		"Please check the attached image for verification.\n\n"+
		"This is an automated alert from your Home Security System.", ts)
	if a.ReportedBy != "" {
		body += "\n\nReported by: " + a.ReportedBy
	}

	return s.notifier.Send(ctx, notifier.Message{
		From:    s.cfg.Sender,
		To:      []string{s.cfg.Recipient},
		Subject: alertSubject,
		Body:    body,
		Attachments: []notifier.Attachment{
			{Name: alertAttachmentName, ContentType: "image/jpeg", Data: a.Image},
		},
	})
}
