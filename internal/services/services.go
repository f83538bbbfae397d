package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adanyl0v/go-todo/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrTodoNotFound         = errors.New("todo not found")
	ErrEmptyTodoText        = errors.New("todo text is empty")
	ErrTodoTextTooLong      = errors.New("todo text is too long")
)

// MaxTodoTextLength is the maximum number of characters in a todo text.
const MaxTodoTextLength = 255

type AuthService interface {
	// Login authenticates the user by email and password.
	//
	// It replaces any session of the user opened with the same
	// fingerprint, so other devices stay signed in, and generates
	// a new JWT token pair.
	//
	// It returns ErrUserNotFound if the user with the given
	// email doesn't exist or ErrUserPasswordMismatch if the
	// given password doesn't match the user's password.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Refresh updates the session with the given refresh token.
	//
	// It returns ErrSessionNotFound if the session with the
	// given refresh token doesn't exist or ErrSessionExpired
	// if the session is expired.
	Refresh(ctx context.Context, params RefreshParams) (*LoginResult, error)

	// Register a user with the given email and password.
	//
	// It hashes the password, generates a unique ID and creates a
	// session with the given fingerprint and a fresh JWT token pair.
	//
	// It returns ErrUserAlreadyExists if the user
	// with the given email already exists.
	Register(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Logout invalidates the session with the given ID.
	Logout(ctx context.Context, sessionID string) error

	// ParseJWTToken parses the given JWT token and returns the registered
	// claims or jwt.ErrTokenExpired if the token is expired.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type SessionService interface {
	// GetSessionByID returns ErrSessionNotFound if there is no such
	// session or ErrSessionExpired if its refresh token has expired.
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)

	// DeleteExpiredSessions removes sessions that can no longer be
	// refreshed and returns how many were removed.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

type UserService interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// TodoService is the remote todos table. Every method is scoped
// to the owner given in its params.
type TodoService interface {
	// CreateTodo inserts a todo with trimmed text and returns the
	// stored row with its generated ID and creation time.
	//
	// It returns ErrEmptyTodoText if the trimmed text is empty.
	CreateTodo(ctx context.Context, params CreateTodoParams) (*models.Todo, error)

	// GetTodosByUserID returns all todos of the user, newest first.
	GetTodosByUserID(ctx context.Context, userID string) ([]*models.Todo, error)

	// SetTodoCompleted sets the completed flag and returns the updated row.
	//
	// It returns ErrTodoNotFound if the user has no todo with the given ID.
	SetTodoCompleted(ctx context.Context, params SetTodoCompletedParams) (*models.Todo, error)

	// DeleteTodo deletes the todo.
	//
	// It returns ErrTodoNotFound if the user has no todo with the given ID.
	DeleteTodo(ctx context.Context, params DeleteTodoParams) error
}

type LoginParams struct {
	Email       string
	Password    string
	Fingerprint string
}

type LoginResult struct {
	UserID                string
	SessionID             string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

type RefreshParams struct {
	RefreshToken string
	Fingerprint  string
}

type CreateTodoParams struct {
	UserID string
	Text   string
}

type SetTodoCompletedParams struct {
	ID        string
	UserID    string
	Completed bool
}

type DeleteTodoParams struct {
	ID     string
	UserID string
}
