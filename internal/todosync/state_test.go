package todosync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adanyl0v/go-todo/internal/models"
)

func todo(id, text string, completed bool) models.Todo {
	return models.Todo{ID: id, UserID: "user-1", Text: text, Completed: completed}
}

func insert(t models.Todo) models.TodoChange {
	return models.TodoChange{Type: models.ChangeInsert, New: &t}
}

func update(t models.Todo) models.TodoChange {
	old := t
	old.Completed = !t.Completed
	return models.TodoChange{Type: models.ChangeUpdate, New: &t, Old: &old}
}

func remove(t models.Todo) models.TodoChange {
	return models.TodoChange{Type: models.ChangeDelete, Old: &t}
}

func TestState_PrependDeduplicates(t *testing.T) {
	var s State
	assert.True(t, s.Prepend(todo("1", "A", false)))
	assert.True(t, s.Prepend(todo("2", "B", false)))
	assert.False(t, s.Prepend(todo("1", "A again", true)))

	assert.Equal(t, []string{"2", "1"}, ids(s.Todos))
	assert.Equal(t, "A", s.Todos[1].Text)
}

func TestState_ApplyUpdateInPlace(t *testing.T) {
	s := State{Todos: []models.Todo{todo("2", "B", false), todo("1", "A", false)}}

	assert.True(t, s.Apply(update(todo("1", "A", true))))
	assert.Equal(t, []models.Todo{todo("2", "B", false), todo("1", "A", true)}, s.Todos)
}

func TestState_ApplyUpdateUnknownIgnored(t *testing.T) {
	s := State{Todos: []models.Todo{todo("1", "A", false)}}

	assert.False(t, s.Apply(update(todo("9", "Z", true))))
	assert.Equal(t, []models.Todo{todo("1", "A", false)}, s.Todos)
}

func TestState_ApplyDeleteUnknownIgnored(t *testing.T) {
	s := State{Todos: []models.Todo{todo("1", "A", false)}}

	assert.False(t, s.Apply(remove(todo("2", "B", false))))
	assert.Equal(t, []models.Todo{todo("1", "A", false)}, s.Todos)
}

func TestState_ApplyIsIdempotent(t *testing.T) {
	changes := []models.TodoChange{
		insert(todo("3", "C", false)),
		update(todo("1", "A", true)),
		remove(todo("2", "B", false)),
	}

	for _, change := range changes {
		t.Run(change.Type, func(t *testing.T) {
			once := State{Todos: []models.Todo{todo("2", "B", false), todo("1", "A", false)}}
			twice := State{Todos: []models.Todo{todo("2", "B", false), todo("1", "A", false)}}

			once.Apply(change)
			twice.Apply(change)
			twice.Apply(change)

			assert.Equal(t, once.Todos, twice.Todos)
		})
	}
}

func TestState_ApplyMalformedChange(t *testing.T) {
	s := State{Todos: []models.Todo{todo("1", "A", false)}}

	assert.False(t, s.Apply(models.TodoChange{Type: models.ChangeInsert}))
	assert.False(t, s.Apply(models.TodoChange{Type: models.ChangeDelete}))
	assert.False(t, s.Apply(models.TodoChange{Type: "TRUNCATE"}))
	assert.Len(t, s.Todos, 1)
}

func TestState_Reset(t *testing.T) {
	s := State{
		Todos:   []models.Todo{todo("1", "A", false)},
		Input:   "draft",
		Filter:  FilterActive,
		Loading: true,
	}
	s.Reset()

	assert.Empty(t, s.Todos)
	assert.Empty(t, s.Input)
	assert.False(t, s.Loading)
	assert.Equal(t, FilterActive, s.Filter)
}
