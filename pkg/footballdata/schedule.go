package footballdata

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/richard-senior/footstats/internal/logger"
)

// cronLogger routes cron's own messages through the application logger so
// nothing reaches stdout
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: "+msg, append([]any{err}, keysAndValues...)...)
}

// Schedule runs an ingestion on the cron spec until the returned scheduler
// is stopped. A run still in progress when the next is due is skipped
func Schedule(ctx context.Context, spec string, ing *Ingester, daysBack, daysForward int) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	_, err := c.AddFunc(spec, func() {
		if _, err := ing.Ingest(ctx, daysBack, daysForward); err != nil {
			logger.Error("Scheduled ingestion failed", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	c.Start()
	logger.Info("Scheduled ingestion", spec)
	return c, nil
}
