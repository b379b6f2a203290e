package common

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger builds a development logger (human-readable, debug level) when
// the DEBUG environment variable is present (with any value, even empty),
// and a production logger (JSON, info level) otherwise.
func NewLogger() (*zap.Logger, error) {
	if _, debug := os.LookupEnv("DEBUG"); debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
