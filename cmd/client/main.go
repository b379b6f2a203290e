// Command client runs one user's retrieval poll loop against their
// configured nodes, storing newly arrived emails in the local encrypted
// store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rylenko/emaild/client"
	"github.com/rylenko/emaild/common"
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

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to the client's JSON config (defaults to $CONFIG_PATH)")
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("-username and -password are required")
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

	return client.Launch(ctx, databaseURL, *configPath, *username, *password, logger)
}
