package todosync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo/internal/models"
)

var (
	ErrEmptyText        = errors.New("todo text is empty")
	ErrNotAuthenticated = errors.New("not signed in")
	ErrAlreadyRunning   = errors.New("controller is already running")
)

// Store is the remote todos table of the signed in user and its change
// stream.
type Store interface {
	// ListTodos returns all todos of the user, newest first.
	ListTodos(ctx context.Context) ([]models.Todo, error)
	// InsertTodo stores a todo and returns the created row.
	InsertTodo(ctx context.Context, userID, text string) (models.Todo, error)
	// SetTodoCompleted writes the flag and returns the updated row.
	SetTodoCompleted(ctx context.Context, id string, completed bool) (models.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	// Subscribe opens the change stream. Its channel is closed when the
	// stream ends.
	Subscribe(ctx context.Context) (Subscription, error)
}

type Subscription interface {
	Changes() <-chan models.TodoChange
	Close() error
}

// Session is the identity the controller acts for. An empty UserID means
// nobody is signed in.
type Session interface {
	UserID() string
	SignOut(ctx context.Context) error
}

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Op names the operation a notification is about.
type Op string

const (
	OpLoad     Op = "load"
	OpRealtime Op = "realtime"
	OpAdd      Op = "add"
	OpToggle   Op = "toggle"
	OpDelete   Op = "delete"
	OpSignOut  Op = "sign-out"
)

// Notification is a transient message for the user.
type Notification struct {
	Op      Op
	Level   Level
	Message string
	Err     error
}

func (n Notification) String() string {
	if n.Err == nil {
		return n.Message
	}
	return n.Message + ": " + n.Err.Error()
}

type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

const (
	msgLoadFailed     = "load failed"
	msgAddFailed      = "add failed"
	msgToggleFailed   = "toggle failed"
	msgDeleteFailed   = "delete failed"
	msgSignOutFailed  = "sign-out failed"
	msgRealtimeFailed = "live updates unavailable"
	msgTodoAdded      = "todo added"
	msgTodoDeleted    = "todo deleted"
)

type Options struct {
	// OnChange receives every new view from the loop goroutine.
	// It must not call back into the controller synchronously.
	OnChange func(View)
}

type op struct {
	fn   func(*State)
	done chan struct{}
}

// Controller keeps a local mirror of the user's todos in sync with the
// store. All state transitions run on the goroutine executing Run; remote
// calls run on the caller's goroutine and hand their confirmed result to it.
type Controller struct {
	logger   zerolog.Logger
	store    Store
	session  Session
	notifier Notifier
	onChange func(View)

	ops       chan op
	ready     chan struct{}
	done      chan struct{}
	signedOut chan struct{}
	signOut   sync.Once
	started   atomic.Bool

	mu   sync.RWMutex
	view View
}

func New(
	logger zerolog.Logger,
	store Store,
	session Session,
	notifier Notifier,
	options Options,
) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Controller{
		logger:    logger,
		store:     store,
		session:   session,
		notifier:  notifier,
		onChange:  options.OnChange,
		ops:       make(chan op),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		signedOut: make(chan struct{}),
		view:      View{Filter: FilterAll, Loading: true},
	}
}

// Run subscribes to the change stream, loads the user's todos and then
// applies operations and changes one at a time until ctx is done or the
// user signs out. The subscription is closed when Run returns.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	state := &State{Filter: FilterAll, Loading: true}
	c.publish(state)

	userID := c.session.UserID()

	var changes <-chan models.TodoChange
	sub, err := c.store.Subscribe(ctx)
	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("failed to subscribe to todo changes")
		c.notify(OpRealtime, LevelError, msgRealtimeFailed, err)
	} else {
		defer func() {
			if err := sub.Close(); err != nil {
				c.logger.Warn().
					Err(err).
					Msg("failed to close todo changes subscription")
			}
		}()
		changes = sub.Changes()
	}

	c.load(ctx, state)
	close(c.ready)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().Msg("stopping todo sync")
			return nil
		case <-c.signedOut:
			c.logger.Debug().Msg("signed out, stopping todo sync")
			return nil
		case o := <-c.ops:
			o.fn(state)
			c.publish(state)
			close(o.done)
		case change, ok := <-changes:
			if !ok {
				c.logger.Warn().Msg("todo changes stream closed")
				c.notify(OpRealtime, LevelError, msgRealtimeFailed, nil)
				changes = nil
				continue
			}
			c.merge(state, userID, change)
		}
	}
}

func (c *Controller) load(ctx context.Context, state *State) {
	todos, err := c.store.ListTodos(ctx)
	state.Loading = false
	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("failed to load todos")
		state.Todos = nil
		c.publish(state)
		c.notify(OpLoad, LevelError, msgLoadFailed, err)
		return
	}

	state.Todos = make([]models.Todo, 0, len(todos))
	seen := make(map[string]struct{}, len(todos))
	for _, todo := range todos {
		if _, ok := seen[todo.ID]; ok {
			continue
		}
		seen[todo.ID] = struct{}{}
		state.Todos = append(state.Todos, todo)
	}
	c.logger.Info().
		Int("count", len(state.Todos)).
		Msg("loaded todos")
	c.publish(state)
}

func (c *Controller) merge(state *State, userID string, change models.TodoChange) {
	if owner := change.OwnerID(); owner != userID {
		c.logger.Debug().
			Str("owner_id", owner).
			Str("type", change.Type).
			Msg("ignoring change of another user")
		return
	}
	if !state.Apply(change) {
		return
	}
	c.logger.Debug().
		Str("type", change.Type).
		Str("todo_id", change.Row().ID).
		Msg("merged todo change")
	c.publish(state)
}

// Ready is closed once the initial load has resolved.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Done is closed when Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Snapshot returns the latest view. Safe for concurrent use.
func (c *Controller) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Add inserts a todo and mirrors the stored row at the top of the list.
func (c *Controller) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		c.notify(OpAdd, LevelError, msgAddFailed, ErrEmptyText)
		return ErrEmptyText
	}
	userID := c.session.UserID()
	if userID == "" {
		c.notify(OpAdd, LevelError, msgAddFailed, ErrNotAuthenticated)
		return ErrNotAuthenticated
	}

	todo, err := c.store.InsertTodo(ctx, userID, text)
	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("failed to add todo")
		c.notify(OpAdd, LevelError, msgAddFailed, err)
		return fmt.Errorf("failed to add todo: %w", err)
	}

	applied, err := c.do(ctx, func(s *State) {
		s.Prepend(todo)
		s.Input = ""
	})
	if !applied {
		return err
	}
	c.logger.Info().
		Str("todo_id", todo.ID).
		Msg("added todo")
	c.notify(OpAdd, LevelInfo, msgTodoAdded, nil)
	return nil
}

// Toggle flips the completed flag of a known todo once the store has
// confirmed the write. Unknown IDs are ignored.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	var completed, found bool
	applied, err := c.do(ctx, func(s *State) {
		if i := s.index(id); i >= 0 {
			found = true
			completed = s.Todos[i].Completed
		}
	})
	if !applied {
		return err
	}
	if !found {
		c.logger.Debug().
			Str("todo_id", id).
			Msg("toggle of unknown todo ignored")
		return nil
	}

	todo, err := c.store.SetTodoCompleted(ctx, id, !completed)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("todo_id", id).
			Msg("failed to toggle todo")
		c.notify(OpToggle, LevelError, msgToggleFailed, err)
		return fmt.Errorf("failed to toggle todo: %w", err)
	}

	_, err = c.do(ctx, func(s *State) {
		s.SetCompleted(id, todo.Completed)
	})
	return err
}

// Delete removes the todo from the store and then from the list.
func (c *Controller) Delete(ctx context.Context, id string) error {
	err := c.store.DeleteTodo(ctx, id)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("todo_id", id).
			Msg("failed to delete todo")
		c.notify(OpDelete, LevelError, msgDeleteFailed, err)
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	applied, err := c.do(ctx, func(s *State) {
		s.Remove(id)
	})
	if !applied {
		return err
	}
	c.logger.Info().
		Str("todo_id", id).
		Msg("deleted todo")
	c.notify(OpDelete, LevelInfo, msgTodoDeleted, nil)
	return nil
}

func (c *Controller) SetInput(ctx context.Context, text string) error {
	_, err := c.do(ctx, func(s *State) {
		s.Input = text
	})
	return err
}

func (c *Controller) SetFilter(ctx context.Context, f Filter) error {
	_, err := c.do(ctx, func(s *State) {
		s.Filter = f
	})
	return err
}

// SignOut ends the session. On success the local list is discarded and
// Run returns.
func (c *Controller) SignOut(ctx context.Context) error {
	err := c.session.SignOut(ctx)
	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("failed to sign out")
		c.notify(OpSignOut, LevelError, msgSignOutFailed, err)
		return fmt.Errorf("failed to sign out: %w", err)
	}

	_, err = c.do(ctx, func(s *State) {
		s.Reset()
	})
	c.signOut.Do(func() { close(c.signedOut) })
	c.logger.Info().Msg("signed out")
	return err
}

// do runs fn on the loop and waits for it. It reports false without an
// error when the loop has already stopped, the result is then dropped.
func (c *Controller) do(ctx context.Context, fn func(*State)) (bool, error) {
	o := op{fn: fn, done: make(chan struct{})}
	select {
	case c.ops <- o:
	case <-c.done:
		c.logger.Debug().Msg("todo sync stopped, dropping result")
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
	<-o.done
	return true, nil
}

func (c *Controller) publish(state *State) {
	view := state.View()
	c.mu.Lock()
	c.view = view
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(view)
	}
}

func (c *Controller) notify(op Op, level Level, message string, err error) {
	c.notifier.Notify(Notification{
		Op:      op,
		Level:   level,
		Message: message,
		Err:     err,
	})
}
