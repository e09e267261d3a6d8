package notify

import (
	"context"

	"github.com/dmitrijs2005/lockbox/internal/logging"
)

// LogDispatcher writes codes to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogDispatcher struct {
	log logging.Logger
}

func NewLogDispatcher(log logging.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Send(ctx context.Context, msg Message) error {
	d.log.Info(ctx, "notification not sent, no smtp relay configured", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
