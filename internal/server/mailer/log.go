package mailer

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/logging"
)

// LogSender renders and logs mail instead of sending it.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if _, err := Render(msg); err != nil {
		return err
	}
	s.log.Info(ctx, "email not sent, no provider configured", "template", msg.Template, "recipients", len(msg.To))
	return nil
}
