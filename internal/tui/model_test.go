package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-todo/internal/models"
	"github.com/adanyl0v/go-todo/internal/todosync"
)

type fakeController struct {
	mu      sync.Mutex
	calls   []string
	addErr  error
	view    todosync.View
	filters []todosync.Filter
}

func (f *fakeController) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeController) Snapshot() todosync.View { return f.view }

func (f *fakeController) Add(_ context.Context, text string) error {
	f.record("add:" + text)
	return f.addErr
}

func (f *fakeController) Toggle(_ context.Context, id string) error {
	f.record("toggle:" + id)
	return nil
}

func (f *fakeController) Delete(_ context.Context, id string) error {
	f.record("delete:" + id)
	return nil
}

func (f *fakeController) SetInput(_ context.Context, text string) error {
	f.record("input:" + text)
	return nil
}

func (f *fakeController) SetFilter(_ context.Context, filter todosync.Filter) error {
	f.record("filter:" + string(filter))
	return nil
}

func (f *fakeController) SignOut(context.Context) error {
	f.record("signout")
	return nil
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleView(filter todosync.Filter) todosync.View {
	state := todosync.State{
		Todos: []models.Todo{
			{ID: "2", Text: "Walk the dog"},
			{ID: "1", Text: "Buy milk", Completed: true},
		},
		Filter: filter,
	}
	return state.View()
}

// press feeds msg to the model and runs the returned command chain far
// enough to reach the controller.
func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	if cmd == nil {
		return model, nil
	}
	return model, cmd()
}

func newTestModel(ctrl *fakeController) Model {
	m := NewModel(context.Background(), ctrl, "jane@example.com")
	next, _ := m.Update(viewMsg(ctrl.view))
	return next.(Model)
}

func TestModel_RendersList(t *testing.T) {
	m := newTestModel(&fakeController{view: sampleView(todosync.FilterAll)})

	out := m.View()
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Walk the dog")
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "All (2)")
	assert.Contains(t, out, "Active (1)")
	assert.Contains(t, out, "Completed (1)")
	assert.Contains(t, out, "2 todos, 1 completed")
}

func TestModel_EmptyStates(t *testing.T) {
	tests := []struct {
		filter todosync.Filter
		want   string
	}{
		{todosync.FilterAll, "No todos yet"},
		{todosync.FilterActive, "Nothing left to do"},
		{todosync.FilterCompleted, "Nothing completed yet"},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			m := newTestModel(&fakeController{view: todosync.View{Filter: tt.filter}})
			assert.Contains(t, m.View(), tt.want)
		})
	}
}

func TestModel_Loading(t *testing.T) {
	m := newTestModel(&fakeController{view: todosync.View{Filter: todosync.FilterAll, Loading: true}})
	assert.Contains(t, m.View(), "Loading...")
}

func TestModel_AddFlow(t *testing.T) {
	ctrl := &fakeController{view: sampleView(todosync.FilterAll)}
	m := newTestModel(ctrl)

	m, _ = press(t, m, keyRunes("a"))
	assert.True(t, m.typing)

	m, _ = press(t, m, keyRunes("x"))
	assert.Equal(t, "x", m.input.Value())

	// Typing "q" must not quit while the input is focused.
	m, _ = press(t, m, keyRunes("q"))
	assert.Equal(t, "xq", m.input.Value())

	m, msg := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, addedMsg{}, msg)
	m, _ = press(t, m, msg)
	assert.False(t, m.typing)
	assert.Empty(t, m.input.Value())

	assert.Contains(t, ctrl.calls, "add:xq")
}

func TestModel_AddFailureKeepsInput(t *testing.T) {
	ctrl := &fakeController{view: sampleView(todosync.FilterAll), addErr: errors.New("boom")}
	m := newTestModel(ctrl)

	m, _ = press(t, m, keyRunes("a"))
	m, _ = press(t, m, keyRunes("x"))
	m, msg := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, msg)
	assert.True(t, m.typing)
	assert.Equal(t, "x", m.input.Value())
}

func TestModel_ToggleAndDeleteSelected(t *testing.T) {
	ctrl := &fakeController{view: sampleView(todosync.FilterAll)}
	m := newTestModel(ctrl)

	m, _ = press(t, m, keyRunes("j"))
	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	_, _ = press(t, m, keyRunes("d"))

	assert.Equal(t, []string{"toggle:1", "delete:1"}, ctrl.calls)
}

func TestModel_NavigationStaysInBounds(t *testing.T) {
	m := newTestModel(&fakeController{view: sampleView(todosync.FilterAll)})

	m, _ = press(t, m, keyRunes("k"))
	assert.Zero(t, m.cursor)
	m, _ = press(t, m, keyRunes("j"))
	m, _ = press(t, m, keyRunes("j"))
	assert.Equal(t, 1, m.cursor)

	// The list shrinking pulls the cursor back.
	m, _ = press(t, m, viewMsg(sampleView(todosync.FilterActive)))
	assert.Zero(t, m.cursor)
}

func TestModel_ToggleOnEmptyListDoesNothing(t *testing.T) {
	ctrl := &fakeController{view: todosync.View{Filter: todosync.FilterAll}}
	m := newTestModel(ctrl)

	_, msg := press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Nil(t, msg)
	assert.Empty(t, ctrl.calls)
}

func TestModel_FilterKeys(t *testing.T) {
	ctrl := &fakeController{view: sampleView(todosync.FilterAll)}
	m := newTestModel(ctrl)

	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_, _ = press(t, m, keyRunes("3"))
	_, _ = press(t, m, keyRunes("1"))

	assert.Equal(t, []string{"filter:active", "filter:completed", "filter:all"}, ctrl.calls)
}

func TestModel_SignOutQuits(t *testing.T) {
	ctrl := &fakeController{view: sampleView(todosync.FilterAll)}
	m := newTestModel(ctrl)

	m, msg := press(t, m, keyRunes("S"))
	assert.Equal(t, signedOutMsg{}, msg)

	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_Notifications(t *testing.T) {
	m := newTestModel(&fakeController{view: sampleView(todosync.FilterAll)})

	next, cmd := m.Update(noticeMsg(todosync.Notification{
		Level:   todosync.LevelError,
		Message: "add failed",
		Err:     todosync.ErrEmptyText,
	}))
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "add failed: todo text is empty")

	// A stale timer does not clear a newer notification.
	next, _ = m.Update(noticeMsg(todosync.Notification{Message: "todo added"}))
	m = next.(Model)
	next, _ = m.Update(clearNoticeMsg{seq: 1})
	m = next.(Model)
	assert.Contains(t, m.View(), "todo added")

	next, _ = m.Update(clearNoticeMsg{seq: 2})
	m = next.(Model)
	assert.NotContains(t, m.View(), "todo added")
}
