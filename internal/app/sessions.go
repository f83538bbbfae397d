package app

import (
	"context"
	"sync"
	"time"

	"github.com/adanyl0v/go-todo/internal/config"
	"github.com/adanyl0v/go-todo/internal/services"
)

var (
	stopSessionCleanup context.CancelFunc
	sessionCleanupDone sync.WaitGroup
)

// StartSessionCleanup periodically deletes sessions whose refresh token
// has expired.
func StartSessionCleanup() {
	interval := config.Global().JWT.SessionCleanupInterval
	sessionService := services.NewSessionService(
		globalLogger.With().Str("service", "sessions").Logger(),
		globalPostgresPool,
	)

	var ctx context.Context
	ctx, stopSessionCleanup = context.WithCancel(context.Background())
	sessionCleanupDone.Add(1)
	go func() {
		defer sessionCleanupDone.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			// Failures are logged by the service, the next tick retries.
			_, _ = sessionService.DeleteExpiredSessions(ctx)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	globalLogger.Info().
		Dur("interval", interval).
		Msg("started session cleanup")
}

func StopSessionCleanup() {
	stopSessionCleanup()
	sessionCleanupDone.Wait()
	globalLogger.Info().Msg("stopped session cleanup")
}
