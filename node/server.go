package node

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/rylenko/emaild/common"
)

const containerAddress = "0.0.0.0:8000"

// Launch loads the node's configuration, connects to the database,
// starts the reaper, and serves connections until ctx is canceled.
func Launch(ctx context.Context, databaseURL, configPath string, logger *zap.Logger) error {
	config, err := common.LoadJSONConfig[Config](configPath)
	if err != nil {
		return fmt.Errorf("node: load config: %w", err)
	}

	pool, err := common.NewDBPool(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("node: connect db: %w", err)
	}
	defer pool.Close()

	store := NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("node: migrate: %w", err)
	}

	reaper, err := StartReaper(ctx, store, logger)
	if err != nil {
		return fmt.Errorf("node: start reaper: %w", err)
	}
	defer reaper.Stop()

	dialer, err := common.NewDialer("")
	if err != nil {
		return fmt.Errorf("node: build dialer: %w", err)
	}
	relay := NewRelay(config, store, dialer, logger)

	listener, err := net.Listen("tcp", containerAddress)
	if err != nil {
		return fmt.Errorf("node: bind listener: %w", err)
	}
	defer listener.Close()

	logger.Info("listening", zap.String("address", containerAddress))
	return relay.Serve(ctx, listener)
}
