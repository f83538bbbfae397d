package models

import "time"

const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

type Todo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoChange is a single row change on the todos table as emitted by the
// notify trigger. INSERT carries New, DELETE carries Old, UPDATE both.
type TodoChange struct {
	Type string `json:"type"`
	New  *Todo  `json:"new,omitempty"`
	Old  *Todo  `json:"old,omitempty"`
}

// Row returns the row image identifying the changed todo.
func (c TodoChange) Row() *Todo {
	if c.New != nil {
		return c.New
	}
	return c.Old
}

// OwnerID returns the owner of the changed row or "" if the payload
// carries no row image.
func (c TodoChange) OwnerID() string {
	row := c.Row()
	if row == nil {
		return ""
	}
	return row.UserID
}
