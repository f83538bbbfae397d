// Package realtime fans out row changes of the todos table to the
// subscribers that own the changed rows.
package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo/internal/models"
)

// Hub delivers published changes to the subscriptions of the row owner.
type Hub struct {
	logger     zerolog.Logger
	bufferSize int

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub(logger zerolog.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Hub{
		logger:     logger,
		bufferSize: bufferSize,
		subs:       make(map[*Subscription]struct{}),
	}
}

// Subscription receives the changes of a single user's rows.
// Its channel is closed when the subscription or the hub is closed.
type Subscription struct {
	hub       *Hub
	userID    string
	ch        chan models.TodoChange
	closeOnce sync.Once
}

func (s *Subscription) C() <-chan models.TodoChange {
	return s.ch
}

func (s *Subscription) UserID() string {
	return s.userID
}

func (s *Subscription) Close() {
	s.hub.remove(s)
	s.closeChan()
}

func (s *Subscription) closeChan() {
	s.closeOnce.Do(func() { close(s.ch) })
}

func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		userID: userID,
		ch:     make(chan models.TodoChange, h.bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.closeChan()
		return sub
	}
	h.subs[sub] = struct{}{}

	h.logger.Debug().
		Str("user_id", userID).
		Int("subscribers", len(h.subs)).
		Msg("subscribed to todo changes")
	return sub
}

// Publish never blocks: a subscriber whose buffer is full misses the change.
func (h *Hub) Publish(change models.TodoChange) {
	ownerID := change.OwnerID()
	if ownerID == "" {
		h.logger.Warn().
			Str("type", change.Type).
			Msg("dropping change without row image")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.userID != ownerID {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			h.logger.Warn().
				Str("user_id", sub.userID).
				Str("type", change.Type).
				Msg("subscriber buffer full, dropping change")
		}
	}
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		sub.closeChan()
	}
	h.logger.Info().Msg("closed realtime hub")
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	h.logger.Debug().
		Str("user_id", sub.userID).
		Int("subscribers", len(h.subs)).
		Msg("unsubscribed from todo changes")
}
