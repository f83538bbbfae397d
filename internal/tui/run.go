package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo/internal/todosync"
)

// bridge forwards controller callbacks into the running program.
type bridge struct {
	mu      sync.Mutex
	program *tea.Program
}

func (b *bridge) attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = p
}

func (b *bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (b *bridge) Notify(n todosync.Notification) { b.send(noticeMsg(n)) }

func (b *bridge) onChange(v todosync.View) { b.send(viewMsg(v)) }

// Run shows the todo list of the signed in user until the user quits or
// signs out.
func Run(
	ctx context.Context,
	logger zerolog.Logger,
	store todosync.Store,
	session todosync.Session,
	email string,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := &bridge{}
	ctrl := todosync.New(logger, store, session, b, todosync.Options{
		OnChange: b.onChange,
	})

	p := tea.NewProgram(
		NewModel(ctx, ctrl, email),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	b.attach(p)

	syncErr := make(chan error, 1)
	go func() { syncErr <- ctrl.Run(ctx) }()

	_, err := p.Run()
	cancel()
	if runErr := <-syncErr; runErr != nil {
		logger.Error().
			Err(runErr).
			Msg("todo sync stopped with error")
	}

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run todo ui: %w", err)
	}
	return nil
}
