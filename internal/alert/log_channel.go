package alert

import (
	"context"

	"github.com/tommy-ca/gridtrader/internal/logging"
)

// LogChannel writes every Payload to the process logger. It is always
// registered by default, so an account with no webhook configured
// still has every admin notification land somewhere durable.
type LogChannel struct {
	logger logging.Logger
}

// NewLogChannel builds a LogChannel writing through logger.
func NewLogChannel(logger logging.Logger) *LogChannel {
	return &LogChannel{logger: logger.WithField("component", "alert_log_channel")}
}

func (l *LogChannel) Name() string { return "log" }

func (l *LogChannel) Send(ctx context.Context, p Payload) error {
	args := []interface{}{"message", p.Message, "account", p.Account, "verb", p.Verb, "stage", p.Stage, "fields", p.Fields}
	switch p.Level {
	case Critical, Error:
		l.logger.Error(p.Title, args...)
	case Warning:
		l.logger.Warn(p.Title, args...)
	default:
		l.logger.Info(p.Title, args...)
	}
	return nil
}
