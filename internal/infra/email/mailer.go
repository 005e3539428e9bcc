package email

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"saas-starter/internal/domain/notifications"
)

// LogStore persists the email_logs trail.
type LogStore interface {
	CreateEmailLog(ctx context.Context, entry *notifications.EmailLog) error
	UpdateEmailLog(ctx context.Context, entry *notifications.EmailLog) error
}

type Request struct {
	UserID   string
	To       string
	Template Template
	Data     any
}

// Mailer renders templates, retries transient send failures and records
// every attempt in the email log.
type Mailer struct {
	sender     Sender
	logs       LogStore
	log        logrus.FieldLogger
	maxRetries uint64
	baseDelay  time.Duration
}

type Option func(*Mailer)

func WithRetries(n uint64, base time.Duration) Option {
	return func(m *Mailer) {
		m.maxRetries = n
		m.baseDelay = base
	}
}

func NewMailer(sender Sender, logs LogStore, log logrus.FieldLogger, opts ...Option) *Mailer {
	m := &Mailer{
		sender:     sender,
		logs:       logs,
		log:        log.WithField("component", "mailer"),
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send returns the provider message id. Invalid messages are not retried.
func (m *Mailer) Send(ctx context.Context, req Request) (string, error) {
	subject, html, err := Render(req.Template, req.Data)
	if err != nil {
		return "", err
	}
	msg := Message{To: req.To, Subject: subject, HTML: html, Tag: string(req.Template)}
	if err := msg.Validate(); err != nil {
		return "", err
	}

	entry := &notifications.EmailLog{
		Template:  string(req.Template),
		Recipient: req.To,
		Subject:   subject,
		Status:    notifications.EmailPending,
	}
	if req.UserID != "" {
		uid := req.UserID
		entry.UserID = &uid
	}
	logged := m.record(ctx, entry, true)

	var messageID string
	backoff := retry.WithMaxRetries(m.maxRetries, retry.NewExponential(m.baseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		entry.Attempts++
		id, err := m.sender.Send(ctx, msg)
		if err != nil {
			if errors.Is(err, ErrInvalidMessage) {
				return err
			}
			m.log.WithError(err).WithField("attempt", entry.Attempts).Warn("email send failed")
			return retry.RetryableError(err)
		}
		messageID = id
		return nil
	})

	if err != nil {
		reason := err.Error()
		entry.Status = notifications.EmailFailed
		entry.ErrorMessage = &reason
	} else {
		entry.Status = notifications.EmailSent
		entry.ProviderMessageID = &messageID
	}
	if logged {
		m.record(ctx, entry, false)
	}
	return messageID, err
}

func (m *Mailer) record(ctx context.Context, entry *notifications.EmailLog, create bool) bool {
	if m.logs == nil {
		return false
	}
	var err error
	if create {
		err = m.logs.CreateEmailLog(ctx, entry)
	} else {
		err = m.logs.UpdateEmailLog(ctx, entry)
	}
	if err != nil {
		m.log.WithError(err).WithField("template", entry.Template).Error("email log write failed")
		return false
	}
	return true
}
