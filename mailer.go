package jobs

import (
	"context"

	"github.com/google/uuid"
)

// LogMailer is the development Mailer: it logs the message instead of
// delivering it and reports a synthetic message id. Real delivery lives
// behind the Mailer interface so transports can be swapped without touching
// the registration flow.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendMail(ctx context.Context, msg Email) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	id := uuid.NewString()
	m.logger.Info("mail %s to=%s subject=%q body=%q", id, msg.Recipient, msg.Subject, msg.Body)

	return id, nil
}
