package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo/internal/models"
)

type Publisher interface {
	Publish(change models.TodoChange)
}

// Listener forwards the notifications emitted by the todos trigger
// to a Publisher.
type Listener struct {
	logger         zerolog.Logger
	pgPool         *pgxpool.Pool
	channel        string
	publisher      Publisher
	reconnectDelay time.Duration
}

func NewListener(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	channel string,
	publisher Publisher,
	reconnectDelay time.Duration,
) *Listener {
	return &Listener{
		logger:         logger,
		pgPool:         pgPool,
		channel:        channel,
		publisher:      publisher,
		reconnectDelay: reconnectDelay,
	}
}

// Run listens until ctx is done, reconnecting after connection failures.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.logger.Info().
				Str("channel", l.channel).
				Msg("stopped listening")
			return
		}
		l.logger.Error().
			Err(err).
			Str("channel", l.channel).
			Dur("retry_in", l.reconnectDelay).
			Msg("lost notification connection")

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	poolConn, err := l.pgPool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	// A listening connection must not go back to the pool.
	conn := poolConn.Hijack()
	defer func() { _ = conn.Close(context.Background()) }()

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	l.logger.Info().
		Str("channel", l.channel).
		Msg("listening for todo changes")

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("failed to wait for notification: %w", err)
		}

		change, err := DecodeNotification(notification.Payload)
		if err != nil {
			l.logger.Warn().
				Err(err).
				Str("payload", notification.Payload).
				Msg("skipping malformed notification")
			continue
		}
		l.logger.Debug().
			Str("type", change.Type).
			Str("user_id", change.OwnerID()).
			Msg("received todo change")

		l.publisher.Publish(change)
	}
}

var ErrMalformedChange = errors.New("malformed todo change")

// DecodeNotification parses a payload produced by notify_todos_change().
func DecodeNotification(payload string) (models.TodoChange, error) {
	var change models.TodoChange
	err := json.Unmarshal([]byte(payload), &change)
	if err != nil {
		return models.TodoChange{}, fmt.Errorf("%w: %w", ErrMalformedChange, err)
	}

	switch change.Type {
	case models.ChangeInsert, models.ChangeUpdate:
		if change.New == nil {
			return models.TodoChange{}, fmt.Errorf("%w: %s without new row", ErrMalformedChange, change.Type)
		}
	case models.ChangeDelete:
		if change.Old == nil {
			return models.TodoChange{}, fmt.Errorf("%w: DELETE without old row", ErrMalformedChange)
		}
	default:
		return models.TodoChange{}, fmt.Errorf("%w: unknown type %q", ErrMalformedChange, change.Type)
	}
	return change, nil
}
