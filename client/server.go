package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rylenko/emaild/common"
)

// Launch loads the client's configuration, connects to the database, logs
// in username/password, starts the reaper, and runs a retrieval poll loop
// for that user until ctx is canceled.
func Launch(ctx context.Context, databaseURL, configPath, username, password string, logger *zap.Logger) error {
	config, err := common.LoadJSONConfig[Config](configPath)
	if err != nil {
		return fmt.Errorf("client: load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("client: invalid config: %w", err)
	}

	pool, err := common.NewDBPool(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("client: connect db: %w", err)
	}
	defer pool.Close()

	store := NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("client: migrate: %w", err)
	}

	user, err := store.GetUser(ctx, username, password)
	if err != nil {
		return fmt.Errorf("client: log in: %w", err)
	}

	reaper, err := StartReaper(ctx, store, logger)
	if err != nil {
		return fmt.Errorf("client: start reaper: %w", err)
	}
	defer reaper.Stop()

	dialer, err := common.NewDialer(config.Proxy)
	if err != nil {
		return fmt.Errorf("client: build dialer: %w", err)
	}

	engine := NewEngine(store, dialer, logger)
	logger.Info("polling for new emails", zap.String("username", user.Username))
	engine.Poll(ctx, user)
	return nil
}
