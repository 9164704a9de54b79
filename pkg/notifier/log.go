package notifier

import (
	"context"

	"github.com/jmylchreest/ticketwatch/internal/logger"
)

// Log writes messages to the application log instead of a channel.
type Log struct{}

// Name returns the sink identifier.
func (Log) Name() string {
	return "log"
}

// Send logs text at Info level.
func (Log) Send(ctx context.Context, text string) error {
	logger.InfoContext(ctx, "notification", "message", Truncate(text))
	return nil
}
