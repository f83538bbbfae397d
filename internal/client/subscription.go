package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo/internal/models"
	"github.com/adanyl0v/go-todo/internal/todosync"
)

const changesPath = "/api/v1/realtime/todos"

var _ todosync.Store = (*Client)(nil)

// Subscription is a websocket stream of the signed in user's todo changes.
type Subscription struct {
	logger  zerolog.Logger
	conn    *websocket.Conn
	changes chan models.TodoChange
	cancel  context.CancelFunc
	done    chan struct{}
}

// Subscribe dials the change stream. The connection outlives ctx only
// until ctx is done.
func (c *Client) Subscribe(ctx context.Context) (todosync.Subscription, error) {
	return c.subscribe(ctx)
}

func (c *Client) subscribe(ctx context.Context) (*Subscription, error) {
	wsURL := c.endpoint(changesPath)
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	dialCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	header := http.Header{}
	header.Set("User-Agent", userAgent)

	conn, resp, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		HTTPClient: c.http,
		HTTPHeader: header,
	})
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("url", wsURL).
			Msg("failed to dial todo changes")
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, &APIError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to dial todo changes: %w", err)
	}
	c.logger.Info().Msg("subscribed to todo changes")

	readCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		logger:  c.logger,
		conn:    conn,
		changes: make(chan models.TodoChange),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go sub.read(readCtx)
	return sub, nil
}

func (s *Subscription) read(ctx context.Context) {
	defer close(s.done)
	defer close(s.changes)

	for {
		var change models.TodoChange
		err := wsjson.Read(ctx, s.conn, &change)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				s.logger.Debug().Msg("todo changes subscription closed")
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
				s.logger.Info().
					Err(err).
					Msg("server closed todo changes")
			default:
				s.logger.Error().
					Err(err).
					Msg("failed to read todo change")
			}
			return
		}

		s.logger.Debug().
			Str("type", change.Type).
			Msg("received todo change")

		select {
		case s.changes <- change:
		case <-ctx.Done():
			return
		}
	}
}

// Changes is closed when the stream ends.
func (s *Subscription) Changes() <-chan models.TodoChange {
	return s.changes
}

// Close ends the stream and waits for the reader to stop.
func (s *Subscription) Close() error {
	s.cancel()
	<-s.done
	err := s.conn.CloseNow()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close todo changes: %w", err)
	}
	return nil
}
