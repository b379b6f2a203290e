package client

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Polling backoff constants control Engine.Poll's adaptive interval.
// When a cycle turns up no new emails, the interval grows exponentially up
// to PollingMaxBackoff. When a cycle finds at least one, it resets to
// PollingInitialInterval so a burst of activity gets picked up quickly.
const (
	PollingInitialInterval   = 2 * time.Second
	PollingMaxBackoff        = 30 * time.Second
	PollingBackoffMultiplier = 1.5
	PollingJitterFactor      = 0.3
)

// Poll runs Retrieve for user in a loop, backing off when nothing new
// arrives and resetting when something does, until ctx is canceled.
func (e *Engine) Poll(ctx context.Context, user *User) {
	interval := PollingInitialInterval
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		added, err := e.Retrieve(ctx, user)
		if err != nil {
			e.logger.Warn("retrieve cycle failed", zap.String("username", user.Username), zap.Error(err))
		} else if added > 0 {
			e.logger.Debug("retrieve cycle added emails", zap.String("username", user.Username), zap.Int("count", added))
			interval = PollingInitialInterval
		} else {
			interval = nextBackoff(interval)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(withJitter(interval)):
		}
	}
}

func nextBackoff(interval time.Duration) time.Duration {
	next := time.Duration(float64(interval) * PollingBackoffMultiplier)
	if next > PollingMaxBackoff {
		return PollingMaxBackoff
	}
	return next
}

func withJitter(interval time.Duration) time.Duration {
	jitter := time.Duration(rand.Float64() * PollingJitterFactor * float64(interval))
	return interval + jitter
}
