package email

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogSender only logs messages. Used when Postmark is not configured.
type LogSender struct {
	Log logrus.FieldLogger
}

func (s LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	id := "log-" + uuid.NewString()
	s.Log.WithFields(logrus.Fields{
		"to":         msg.To,
		"subject":    msg.Subject,
		"tag":        msg.Tag,
		"message_id": id,
	}).Info("email not sent, no provider configured")
	return id, nil
}
