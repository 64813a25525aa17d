package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender is a dry-run sink: it logs the message and acknowledges it.
type LogSender struct {
	Logger *zap.Logger
}

func (l *LogSender) Send(_ context.Context, m Message) (string, error) {
	id := "dry-run/" + uuid.NewString()
	l.Logger.Info("push_dry_run",
		zap.String("message_id", id),
		zap.String("title", m.Title),
		zap.String("body", m.Body),
		zap.String("token", m.Token),
	)
	return id, nil
}
