package email

import (
	"context"
	"errors"
	"net/mail"
)

var (
	ErrInvalidConfig     = errors.New("email: invalid configuration")
	ErrInvalidMessage    = errors.New("email: invalid message")
	ErrFailedToSendEmail = errors.New("email: failed to send")
	ErrUnknownTemplate   = errors.New("email: unknown template")
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Tag     string
}

func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	if m.Subject == "" || m.HTML == "" {
		return errors.Join(ErrInvalidMessage, errors.New("subject and body are required"))
	}
	return nil
}

// Sender delivers one message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
