package todosync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adanyl0v/go-todo/internal/models"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

var ErrUnknownFilter = errors.New("unknown filter")

// Filters lists the modes in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

// ParseFilter accepts a mode name case-insensitively. An empty string
// means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
	}
}

// Next cycles all -> active -> completed -> all.
func (f Filter) Next() Filter {
	for i, mode := range Filters {
		if mode == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

func (f Filter) matches(todo models.Todo) bool {
	switch f {
	case FilterActive:
		return !todo.Completed
	case FilterCompleted:
		return todo.Completed
	default:
		return true
	}
}

// FilterTodos returns the todos matching the mode in their original order.
// The input slice is never modified.
func FilterTodos(todos []models.Todo, f Filter) []models.Todo {
	filtered := make([]models.Todo, 0, len(todos))
	for _, todo := range todos {
		if f.matches(todo) {
			filtered = append(filtered, todo)
		}
	}
	return filtered
}

// CountTodos counts over the full set regardless of the selected filter.
func CountTodos(todos []models.Todo) (active, completed int) {
	for _, todo := range todos {
		if todo.Completed {
			completed++
		} else {
			active++
		}
	}
	return active, completed
}

// View is what a presentation layer renders.
type View struct {
	Todos     []models.Todo
	Total     int
	Active    int
	Completed int
	Filter    Filter
	Input     string
	Loading   bool
}

// Count returns the number of todos the mode would show.
func (v View) Count(f Filter) int {
	switch f {
	case FilterActive:
		return v.Active
	case FilterCompleted:
		return v.Completed
	default:
		return v.Total
	}
}
