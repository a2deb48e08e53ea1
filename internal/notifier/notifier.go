// Package notifier delivers outbound alert messages.
package notifier

import (
	"context"
	"errors"
)

var ErrNoRecipient = errors.New("message has no recipient")

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Notifier sends a message and blocks until the transport accepted or rejected it.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
