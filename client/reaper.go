package client

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rylenko/emaild/common"
)

// StartReaper schedules DeleteOldEmails(EmailsMaxAge) to run every
// CheckOldEmailsInterval, returning the running cron instance so the
// caller can Stop it on shutdown.
func StartReaper(ctx context.Context, store *Store, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", common.CheckOldEmailsInterval)

	_, err := c.AddFunc(spec, func() {
		deleted, err := store.DeleteOldEmails(ctx, int64(common.EmailsMaxAge.Seconds()))
		if err != nil {
			logger.Warn("failed to delete old emails", zap.Error(err))
			return
		}
		logger.Debug("deleted old emails", zap.Int64("count", deleted))
	})
	if err != nil {
		return nil, fmt.Errorf("client: schedule reaper: %w", err)
	}

	c.Start()
	return c, nil
}
