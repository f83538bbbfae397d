package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo/internal/models"
)

const userAgent = "go-todo-cli"

var ErrInvalidServerURL = errors.New("invalid server url")

// APIError is a non-2xx response of the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client talks to the todo server. Tokens are kept in an in-memory cookie
// jar, so a Client carries exactly one signed in user.
type Client struct {
	logger  zerolog.Logger
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
}

func New(logger zerolog.Logger, serverURL string, timeout time.Duration) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidServerURL, err)
	}
	if (baseURL.Scheme != "http" && baseURL.Scheme != "https") || baseURL.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServerURL, serverURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	// No client timeout, websocket dials reject it. Requests are
	// bounded by their context instead.
	return &Client{
		logger:  logger,
		baseURL: baseURL,
		http:    &http.Client{Jar: jar},
		timeout: timeout,
	}, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID string `json:"user_id"`
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", credentials{email, password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", credentials{email, password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user)
	return user, err
}

func (c *Client) ListTodos(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	err := c.do(ctx, http.MethodGet, "/api/v1/todos", nil, &todos)
	if err != nil {
		return nil, err
	}
	return todos, nil
}

type createTodoRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

func (c *Client) InsertTodo(ctx context.Context, userID, text string) (models.Todo, error) {
	var todo models.Todo
	err := c.do(ctx, http.MethodPost, "/api/v1/todos", createTodoRequest{
		Text:   text,
		UserID: userID,
	}, &todo)
	return todo, err
}

type setTodoCompletedRequest struct {
	Completed bool `json:"completed"`
}

func (c *Client) SetTodoCompleted(ctx context.Context, id string, completed bool) (models.Todo, error) {
	var todo models.Todo
	err := c.do(ctx, http.MethodPatch, "/api/v1/todos/"+url.PathEscape(id), setTodoCompletedRequest{
		Completed: completed,
	}, &todo)
	return todo, err
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/todos/"+url.PathEscape(id), nil, nil)
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// do sends a JSON request and decodes a JSON response into out if given.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("method", method).
			Str("path", path).
			Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}
