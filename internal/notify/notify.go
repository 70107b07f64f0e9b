// Package notify delivers user-facing event messages: booking outcomes,
// confirmation requests, reminders and expiry notices.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Attachment is an optional file shipped with a message, e.g. a calendar
// event for a successful booking.
type Attachment struct {
	Filename string
	MIME     string
	Data     []byte
}

type Message struct {
	Text       string
	Attachment *Attachment
}

// Notifier delivers one message. Delivery failures are the caller's to log;
// they never block booking state transitions.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log. The fallback when no Telegram
// credentials are configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	fields := []zap.Field{zap.String("text", msg.Text)}
	if msg.Attachment != nil {
		fields = append(fields, zap.String("attachment", msg.Attachment.Filename))
	}
	n.logger.Info("notification", fields...)
	return nil
}
