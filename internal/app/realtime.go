package app

import (
	"context"
	"sync"

	"github.com/adanyl0v/go-todo/internal/config"
	"github.com/adanyl0v/go-todo/internal/realtime"
)

var (
	globalRealtimeHub    *realtime.Hub
	stopRealtimeListener context.CancelFunc
	realtimeListenerDone sync.WaitGroup
)

// MustStartRealtime starts forwarding todo changes from postgres to the hub.
func MustStartRealtime() {
	cfg := config.Global().Realtime

	globalRealtimeHub = realtime.NewHub(
		globalLogger.With().Str("component", "realtime_hub").Logger(),
		cfg.SubscriberBuffer,
	)
	listener := realtime.NewListener(
		globalLogger.With().Str("component", "realtime_listener").Logger(),
		globalPostgresPool,
		cfg.Channel,
		globalRealtimeHub,
		cfg.ReconnectDelay,
	)

	var ctx context.Context
	ctx, stopRealtimeListener = context.WithCancel(context.Background())
	realtimeListenerDone.Add(1)
	go func() {
		defer realtimeListenerDone.Done()
		listener.Run(ctx)
	}()

	globalLogger.Info().
		Str("channel", cfg.Channel).
		Msg("started realtime")
}

// StopRealtime stops the listener and disconnects every subscriber.
func StopRealtime() {
	stopRealtimeListener()
	realtimeListenerDone.Wait()
	globalRealtimeHub.Close()
	globalLogger.Info().Msg("stopped realtime")
}
