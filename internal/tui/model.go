package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/adanyl0v/go-todo/internal/services"
	"github.com/adanyl0v/go-todo/internal/todosync"
)

const noticeTTL = 3 * time.Second

// Controller is the part of todosync.Controller the model drives.
type Controller interface {
	Snapshot() todosync.View
	Add(ctx context.Context, text string) error
	Toggle(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	SetInput(ctx context.Context, text string) error
	SetFilter(ctx context.Context, f todosync.Filter) error
	SignOut(ctx context.Context) error
}

type (
	viewMsg        todosync.View
	noticeMsg      todosync.Notification
	addedMsg       struct{}
	signedOutMsg   struct{}
	clearNoticeMsg struct{ seq int }
)

type Model struct {
	ctx   context.Context
	ctrl  Controller
	email string

	keys  keyMap
	help  help.Model
	input textinput.Model

	view      todosync.View
	cursor    int
	typing    bool
	notice    *todosync.Notification
	noticeSeq int
}

func NewModel(ctx context.Context, ctrl Controller, email string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs to be done?"
	ti.CharLimit = services.MaxTodoTextLength

	return Model{
		ctx:   ctx,
		ctrl:  ctrl,
		email: email,
		keys:  defaultKeyMap(),
		help:  help.New(),
		input: ti,
		view:  ctrl.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = todosync.View(msg)
		m.clampCursor()
		return m, nil
	case noticeMsg:
		n := todosync.Notification(msg)
		m.notice = &n
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
			return clearNoticeMsg{seq: seq}
		})
	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil
	case addedMsg:
		m.input.SetValue("")
		m.input.Blur()
		m.typing = false
		return m, nil
	case signedOutMsg:
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-8, 10)
		return m, nil
	case tea.KeyMsg:
		if m.typing {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		return m, m.call(func(ctx context.Context) error {
			return m.ctrl.Add(ctx, text)
		}, addedMsg{})
	case key.Matches(msg, m.keys.Cancel):
		m.input.Blur()
		m.typing = false
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		cmd = tea.Batch(cmd, m.call(func(ctx context.Context) error {
			return m.ctrl.SetInput(ctx, after)
		}, nil))
	}
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Input):
		m.typing = true
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Todos)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.selectedID(); ok {
			return m, m.call(func(ctx context.Context) error {
				return m.ctrl.Toggle(ctx, id)
			}, nil)
		}
	case key.Matches(msg, m.keys.Delete):
		if id, ok := m.selectedID(); ok {
			return m, m.call(func(ctx context.Context) error {
				return m.ctrl.Delete(ctx, id)
			}, nil)
		}
	case key.Matches(msg, m.keys.Next):
		return m, m.setFilter(m.view.Filter.Next())
	case key.Matches(msg, m.keys.All):
		return m, m.setFilter(todosync.FilterAll)
	case key.Matches(msg, m.keys.Active):
		return m, m.setFilter(todosync.FilterActive)
	case key.Matches(msg, m.keys.Completed):
		return m, m.setFilter(todosync.FilterCompleted)
	case key.Matches(msg, m.keys.SignOut):
		return m, m.call(m.ctrl.SignOut, signedOutMsg{})
	}
	return m, nil
}

func (m Model) setFilter(f todosync.Filter) tea.Cmd {
	return m.call(func(ctx context.Context) error {
		return m.ctrl.SetFilter(ctx, f)
	}, nil)
}

// call runs fn off the update loop. Failures reach the user through the
// controller's notifications, onSuccess is delivered only if fn succeeds.
func (m Model) call(fn func(ctx context.Context) error, onSuccess tea.Msg) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return nil
		}
		return onSuccess
	}
}

func (m Model) selectedID() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Todos) {
		return "", false
	}
	return m.view.Todos[m.cursor].ID, true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.view.Todos) {
		m.cursor = len(m.view.Todos) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	var b strings.Builder

	header := titleStyle.Render("Todos")
	if m.email != "" {
		header += "  " + mutedStyle.Render(m.email)
	}
	b.WriteString(header + "\n\n")

	if m.typing {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(mutedStyle.Render("press a to add a todo"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderTabs() + "\n\n")
	b.WriteString(m.renderList() + "\n")

	if m.view.Total > 0 {
		b.WriteString("\n" + mutedStyle.Render(summary(m.view)) + "\n")
	}
	if m.notice != nil {
		b.WriteString("\n" + renderNotice(*m.notice) + "\n")
	}

	return panelStyle.Render(b.String()) + "\n" + m.help.View(m.keys)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(todosync.Filters))
	for _, f := range todosync.Filters {
		label := fmt.Sprintf("%s (%d)", filterTitle(f), m.view.Count(f))
		if f == m.view.Filter {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func (m Model) renderList() string {
	if m.view.Loading {
		return mutedStyle.Render("Loading...")
	}
	if len(m.view.Todos) == 0 {
		return mutedStyle.Render(emptyMessage(m.view.Filter))
	}

	lines := make([]string, len(m.view.Todos))
	for i, todo := range m.view.Todos {
		box, text := mutedStyle.Render(boxUnchecked), todo.Text
		if todo.Completed {
			box, text = successStyle.Render(boxChecked), doneStyle.Render(todo.Text)
		}

		prefix := "  "
		if i == m.cursor {
			prefix = selectedStyle.Render(">") + " "
		}
		lines[i] = prefix + box + " " + text
	}
	return strings.Join(lines, "\n")
}

func renderNotice(n todosync.Notification) string {
	if n.Level == todosync.LevelError {
		return errorStyle.Render("✖ " + n.String())
	}
	return successStyle.Render("✔ " + n.String())
}

func filterTitle(f todosync.Filter) string {
	switch f {
	case todosync.FilterActive:
		return "Active"
	case todosync.FilterCompleted:
		return "Completed"
	default:
		return "All"
	}
}

func emptyMessage(f todosync.Filter) string {
	switch f {
	case todosync.FilterActive:
		return "Nothing left to do."
	case todosync.FilterCompleted:
		return "Nothing completed yet."
	default:
		return "No todos yet. Add one above!"
	}
}

func summary(v todosync.View) string {
	noun := "todos"
	if v.Total == 1 {
		noun = "todo"
	}
	return fmt.Sprintf("%d %s, %d completed", v.Total, noun, v.Completed)
}
