package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo/internal/models"
)

type todoServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTodoService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) TodoService {
	return &todoServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *todoServiceImpl) CreateTodo(ctx context.Context, params CreateTodoParams) (*models.Todo, error) {
	text, err := NormalizeTodoText(params.Text)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", params.UserID).
			Msg("invalid todo text")
		return nil, err
	}

	todoUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate todo uuid")
		return nil, err
	}

	todo := &models.Todo{
		ID:     todoUUID.String(),
		UserID: params.UserID,
		Text:   text,
	}

	// created_at and completed are assigned by the database.
	const insertTodoQuery = `
INSERT INTO todos (id,
                   user_id,
                   text)
VALUES ($1, $2, $3)
RETURNING completed,
          created_at
`
	err = s.pgPool.QueryRow(
		ctx,
		insertTodoQuery,
		todo.ID,
		todo.UserID,
		todo.Text,
	).Scan(
		&todo.Completed,
		&todo.CreatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", todo.UserID).
			Msg("failed to insert todo")
		return nil, err
	}
	s.logger.Debug().
		Str("todo_id", todo.ID).
		Time("created_at", todo.CreatedAt).
		Msg("inserted todo")

	s.logger.Info().
		Str("todo_id", todo.ID).
		Str("user_id", todo.UserID).
		Msg("created todo")
	return todo, nil
}

func (s *todoServiceImpl) GetTodosByUserID(ctx context.Context, userID string) ([]*models.Todo, error) {
	const selectTodosByUserIDQuery = `
SELECT id,
       text,
       completed,
       created_at
FROM todos
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := s.pgPool.Query(
		ctx,
		selectTodosByUserIDQuery,
		userID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select todos by user id")
		return nil, err
	}
	defer rows.Close()

	todos := make([]*models.Todo, 0)
	for rows.Next() {
		todo := &models.Todo{UserID: userID}
		err = rows.Scan(
			&todo.ID,
			&todo.Text,
			&todo.Completed,
			&todo.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan todo")
			return nil, err
		}
		todos = append(todos, todo)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(todos)).
		Str("user_id", userID).
		Msg("selected todos by user id")

	return todos, nil
}

func (s *todoServiceImpl) SetTodoCompleted(ctx context.Context, params SetTodoCompletedParams) (*models.Todo, error) {
	if !isTodoID(params.ID) {
		s.logger.Error().
			Str("todo_id", params.ID).
			Msg("malformed todo id")
		return nil, ErrTodoNotFound
	}

	todo := &models.Todo{
		ID:        params.ID,
		UserID:    params.UserID,
		Completed: params.Completed,
	}

	const updateTodoCompletedQuery = `
UPDATE todos
SET completed = $1
WHERE id = $2 AND user_id = $3
RETURNING text,
          created_at
`
	err := s.pgPool.QueryRow(
		ctx,
		updateTodoCompletedQuery,
		todo.Completed,
		todo.ID,
		todo.UserID,
	).Scan(
		&todo.Text,
		&todo.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("todo_id", todo.ID).
				Str("user_id", todo.UserID).
				Msg("todo not found")
			return nil, ErrTodoNotFound
		}

		s.logger.Error().
			Err(err).
			Str("todo_id", todo.ID).
			Msg("failed to update todo")
		return nil, err
	}
	s.logger.Debug().
		Str("todo_id", todo.ID).
		Bool("completed", todo.Completed).
		Msg("updated todo")

	s.logger.Info().
		Str("todo_id", todo.ID).
		Str("user_id", todo.UserID).
		Msg("set todo completed")
	return todo, nil
}

func (s *todoServiceImpl) DeleteTodo(ctx context.Context, params DeleteTodoParams) error {
	if !isTodoID(params.ID) {
		s.logger.Error().
			Str("todo_id", params.ID).
			Msg("malformed todo id")
		return ErrTodoNotFound
	}

	const deleteTodoQuery = `
DELETE FROM todos
WHERE id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(
		ctx,
		deleteTodoQuery,
		params.ID,
		params.UserID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("todo_id", params.ID).
			Msg("failed to delete todo")
		return err
	}
	if tag.RowsAffected() == 0 {
		s.logger.Error().
			Str("todo_id", params.ID).
			Str("user_id", params.UserID).
			Msg("todo not found")
		return ErrTodoNotFound
	}

	s.logger.Info().
		Str("todo_id", params.ID).
		Str("user_id", params.UserID).
		Msg("deleted todo")
	return nil
}

// NormalizeTodoText trims the text and checks it fits a todo.
func NormalizeTodoText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTodoText
	}
	if utf8.RuneCountInString(text) > MaxTodoTextLength {
		return "", ErrTodoTextTooLong
	}
	return text, nil
}

// The column is a uuid, anything else can never match a row.
func isTodoID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
