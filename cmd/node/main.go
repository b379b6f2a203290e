// Command node runs a single relay: it answers connection checks, email
// retrieval, and email submission, gossiping successful submissions on to
// its configured peers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rylenko/emaild/common"
	"github.com/rylenko/emaild/node"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	godotenv.Load() //nolint:errcheck

	defaultConfigPath := os.Getenv("CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "config.json"
	}

	fs := flag.NewFlagSet("node", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to the node's JSON config (defaults to $CONFIG_PATH)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := common.NewLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return node.Launch(ctx, databaseURL, *configPath, logger)
}
