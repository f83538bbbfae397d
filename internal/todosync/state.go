package todosync

import (
	"slices"

	"github.com/adanyl0v/go-todo/internal/models"
)

// State is the local mirror of the user's todos plus ephemeral input state.
// Todos are kept newest first and never hold two entries with the same ID.
type State struct {
	Todos   []models.Todo
	Input   string
	Filter  Filter
	Loading bool
}

func (s *State) index(id string) int {
	return slices.IndexFunc(s.Todos, func(todo models.Todo) bool {
		return todo.ID == id
	})
}

// Prepend adds the todo at the top unless a todo with the same ID is
// already present. It reports whether the todo was added.
func (s *State) Prepend(todo models.Todo) bool {
	if s.index(todo.ID) >= 0 {
		return false
	}
	s.Todos = slices.Insert(s.Todos, 0, todo)
	return true
}

// SetCompleted sets the flag in place. Unknown IDs are ignored.
func (s *State) SetCompleted(id string, completed bool) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.Todos[i].Completed = completed
	return true
}

// Replace overwrites text and completed of a present todo in place.
func (s *State) Replace(todo models.Todo) bool {
	i := s.index(todo.ID)
	if i < 0 {
		return false
	}
	s.Todos[i].Text = todo.Text
	s.Todos[i].Completed = todo.Completed
	return true
}

// Remove drops the todo with the given ID if present.
func (s *State) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.Todos = slices.Delete(s.Todos, i, i+1)
	return true
}

// Apply merges a change from the stream. Applying the same change twice
// leaves the state as applying it once. It reports whether anything changed.
func (s *State) Apply(change models.TodoChange) bool {
	switch change.Type {
	case models.ChangeInsert:
		if change.New == nil {
			return false
		}
		return s.Prepend(*change.New)
	case models.ChangeUpdate:
		if change.New == nil {
			return false
		}
		return s.Replace(*change.New)
	case models.ChangeDelete:
		row := change.Row()
		if row == nil {
			return false
		}
		return s.Remove(row.ID)
	default:
		return false
	}
}

// Reset discards everything but the selected filter.
func (s *State) Reset() {
	*s = State{Filter: s.Filter}
}

// View derives the filtered list and counts.
func (s *State) View() View {
	active, completed := CountTodos(s.Todos)
	return View{
		Todos:     FilterTodos(s.Todos, s.Filter),
		Total:     len(s.Todos),
		Active:    active,
		Completed: completed,
		Filter:    s.Filter,
		Input:     s.Input,
		Loading:   s.Loading,
	}
}
