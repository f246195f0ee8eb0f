package mailer

import (
	"context"
	"log/slog"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

// Log writes rendered messages to the logger instead of sending them.  It is
// meant for local development, where the code has to be read from the log.
type Log struct{ log *slog.Logger }

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{log: logger}
}

func (l *Log) Send(ctx context.Context, to string, kind model.NotificationKind, data map[string]string) error {
	msg, err := Render(kind, data)
	if err != nil {
		return err
	}
	return l.Deliver(ctx, to, msg)
}

func (l *Log) Deliver(ctx context.Context, to string, msg Message) error {
	l.log.InfoContext(ctx, "email (not sent)", "to", to, "subject", msg.Subject, "body", msg.Text)
	return nil
}
