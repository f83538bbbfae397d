package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-todo/internal/models"
	"github.com/adanyl0v/go-todo/internal/realtime"
	"github.com/adanyl0v/go-todo/internal/services"
)

const (
	testUserID     = "user-1"
	testSessionID  = "session-1"
	testTodoID     = "0192f0c4-8d5e-7c8a-9f3a-3b0b6a1d2e4f"
	testUserAgent  = "todo-test"
	testRemoteAddr = "192.0.2.1:1234"
	validToken     = "valid-token"
	expiredToken   = "expired-token"
)

var errMockDatabase = errors.New("database error")

type mockAuthService struct {
	RefreshFunc func(ctx context.Context, params services.RefreshParams) (*services.LoginResult, error)
	LogoutFunc  func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) Login(context.Context, services.LoginParams) (*services.LoginResult, error) {
	return nil, services.ErrUserNotFound
}

func (m *mockAuthService) Refresh(ctx context.Context, params services.RefreshParams) (*services.LoginResult, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, params)
	}
	return nil, services.ErrSessionNotFound
}

func (m *mockAuthService) Register(context.Context, services.LoginParams) (*services.LoginResult, error) {
	return nil, services.ErrUserAlreadyExists
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) ParseJWTToken(token string) (*jwt.RegisteredClaims, error) {
	switch token {
	case validToken:
		return &jwt.RegisteredClaims{Subject: testSessionID}, nil
	case expiredToken:
		return nil, jwt.ErrTokenExpired
	default:
		return nil, jwt.ErrTokenMalformed
	}
}

type mockSessionService struct {
	fingerprint string
}

func (m *mockSessionService) GetSessionByID(_ context.Context, sessionID string) (*models.Session, error) {
	if sessionID != testSessionID {
		return nil, services.ErrSessionNotFound
	}
	return &models.Session{
		ID:          testSessionID,
		UserID:      testUserID,
		Fingerprint: m.fingerprint,
	}, nil
}

func (m *mockSessionService) DeleteExpiredSessions(context.Context) (int64, error) {
	return 0, nil
}

type mockUserService struct{}

func (mockUserService) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	if userID != testUserID {
		return nil, services.ErrUserNotFound
	}
	return &models.User{ID: testUserID, Email: "jane@example.com"}, nil
}

type mockTodoService struct {
	CreateFunc  func(ctx context.Context, params services.CreateTodoParams) (*models.Todo, error)
	ListFunc    func(ctx context.Context, userID string) ([]*models.Todo, error)
	SetDoneFunc func(ctx context.Context, params services.SetTodoCompletedParams) (*models.Todo, error)
	DeleteFunc  func(ctx context.Context, params services.DeleteTodoParams) error
}

func (m *mockTodoService) CreateTodo(ctx context.Context, params services.CreateTodoParams) (*models.Todo, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, errMockDatabase
}

func (m *mockTodoService) GetTodosByUserID(ctx context.Context, userID string) ([]*models.Todo, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return []*models.Todo{}, nil
}

func (m *mockTodoService) SetTodoCompleted(ctx context.Context, params services.SetTodoCompletedParams) (*models.Todo, error) {
	if m.SetDoneFunc != nil {
		return m.SetDoneFunc(ctx, params)
	}
	return nil, services.ErrTodoNotFound
}

func (m *mockTodoService) DeleteTodo(ctx context.Context, params services.DeleteTodoParams) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, params)
	}
	return services.ErrTodoNotFound
}

type testServer struct {
	auth   *mockAuthService
	todos  *mockTodoService
	hub    *realtime.Hub
	router *gin.Engine
}

func newTestServer(t *testing.T, clientIP string, options Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fingerprint, err := json.Marshal(map[string]string{
		"client_ip":  clientIP,
		"user_agent": testUserAgent,
	})
	require.NoError(t, err)

	ts := &testServer{
		auth:   &mockAuthService{},
		todos:  &mockTodoService{},
		hub:    realtime.NewHub(zerolog.Nop(), 8),
		router: gin.New(),
	}
	t.Cleanup(ts.hub.Close)

	h := New(
		zerolog.Nop(),
		ts.auth,
		&mockSessionService{fingerprint: string(fingerprint)},
		mockUserService{},
		ts.todos,
		ts.hub,
		options,
	)
	RegisterRoutes(ts.router, h)
	return ts
}

func (ts *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = testRemoteAddr
	req.Header.Set("User-Agent", testUserAgent)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func newServer(t *testing.T) *testServer {
	return newTestServer(t, "192.0.2.1", Options{})
}

func TestHealth(t *testing.T) {
	ts := newServer(t)
	w := ts.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	failing := newTestServer(t, "192.0.2.1", Options{
		Ping: func(context.Context) error { return errMockDatabase },
	})
	w = failing.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		w := newServer(t).do(http.MethodGet, "/api/v1/todos", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		w := newServer(t).do(http.MethodGet, "/api/v1/todos", nil, "garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("fingerprint mismatch", func(t *testing.T) {
		ts := newTestServer(t, "198.51.100.7", Options{})
		w := ts.do(http.MethodGet, "/api/v1/todos", nil, validToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token without refresh cookie", func(t *testing.T) {
		w := newServer(t).do(http.MethodGet, "/api/v1/todos", nil, expiredToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthMiddleware_RefreshesExpiredToken(t *testing.T) {
	ts := newServer(t)
	ts.auth.RefreshFunc = func(_ context.Context, params services.RefreshParams) (*services.LoginResult, error) {
		assert.Equal(t, "refresh-1", params.RefreshToken)
		return &services.LoginResult{
			UserID:                testUserID,
			SessionID:             testSessionID,
			AccessToken:           validToken,
			AccessTokenExpiresAt:  time.Now().Add(time.Minute),
			RefreshToken:          "refresh-2",
			RefreshTokenExpiresAt: time.Now().Add(time.Hour),
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/todos", nil)
	req.RemoteAddr = testRemoteAddr
	req.Header.Set("User-Agent", testUserAgent)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: expiredToken})
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: "refresh-1"})

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	cookies := strings.Join(w.Header().Values("Set-Cookie"), "\n")
	assert.Contains(t, cookies, "refresh_token=refresh-2")
	assert.Contains(t, cookies, "access_token="+validToken)
}

func TestGetTodos(t *testing.T) {
	t.Run("empty list is an array", func(t *testing.T) {
		w := newServer(t).do(http.MethodGet, "/api/v1/todos", nil, validToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("scoped to caller", func(t *testing.T) {
		ts := newServer(t)
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		ts.todos.ListFunc = func(_ context.Context, userID string) ([]*models.Todo, error) {
			assert.Equal(t, testUserID, userID)
			return []*models.Todo{
				{ID: "b", UserID: userID, Text: "newer", CreatedAt: created},
				{ID: "a", UserID: userID, Text: "older", Completed: true, CreatedAt: created.Add(-time.Hour)},
			}, nil
		}

		w := ts.do(http.MethodGet, "/api/v1/todos", nil, validToken)
		require.Equal(t, http.StatusOK, w.Code)

		var todos []todoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &todos))
		require.Len(t, todos, 2)
		assert.Equal(t, "b", todos[0].ID)
		assert.True(t, todos[1].Completed)
	})

	t.Run("service failure", func(t *testing.T) {
		ts := newServer(t)
		ts.todos.ListFunc = func(context.Context, string) ([]*models.Todo, error) {
			return nil, errMockDatabase
		}
		w := ts.do(http.MethodGet, "/api/v1/todos", nil, validToken)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCreateTodo(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		ts := newServer(t)
		ts.todos.CreateFunc = func(_ context.Context, params services.CreateTodoParams) (*models.Todo, error) {
			assert.Equal(t, testUserID, params.UserID)
			return &models.Todo{ID: testTodoID, UserID: params.UserID, Text: "buy milk"}, nil
		}

		w := ts.do(http.MethodPost, "/api/v1/todos", gin.H{"text": "buy milk", "user_id": testUserID}, validToken)
		require.Equal(t, http.StatusCreated, w.Code)

		var todo todoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &todo))
		assert.Equal(t, testTodoID, todo.ID)
		assert.Equal(t, "buy milk", todo.Text)
		assert.False(t, todo.Completed)
	})

	t.Run("foreign owner", func(t *testing.T) {
		ts := newServer(t)
		ts.todos.CreateFunc = func(context.Context, services.CreateTodoParams) (*models.Todo, error) {
			t.Fatal("service must not be called")
			return nil, nil
		}
		w := ts.do(http.MethodPost, "/api/v1/todos", gin.H{"text": "x", "user_id": "user-2"}, validToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("blank text", func(t *testing.T) {
		ts := newServer(t)
		ts.todos.CreateFunc = func(_ context.Context, params services.CreateTodoParams) (*models.Todo, error) {
			_, err := services.NormalizeTodoText(params.Text)
			return nil, err
		}
		w := ts.do(http.MethodPost, "/api/v1/todos", gin.H{"text": "   "}, validToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing text", func(t *testing.T) {
		w := newServer(t).do(http.MethodPost, "/api/v1/todos", gin.H{}, validToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSetTodoCompleted(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		ts := newServer(t)
		ts.todos.SetDoneFunc = func(_ context.Context, params services.SetTodoCompletedParams) (*models.Todo, error) {
			assert.Equal(t, testTodoID, params.ID)
			assert.True(t, params.Completed)
			return &models.Todo{ID: params.ID, UserID: params.UserID, Text: "x", Completed: true}, nil
		}
		w := ts.do(http.MethodPatch, "/api/v1/todos/"+testTodoID, gin.H{"completed": true}, validToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"completed":true`)
	})

	t.Run("false is a valid value", func(t *testing.T) {
		ts := newServer(t)
		ts.todos.SetDoneFunc = func(_ context.Context, params services.SetTodoCompletedParams) (*models.Todo, error) {
			assert.False(t, params.Completed)
			return &models.Todo{ID: params.ID, UserID: params.UserID, Text: "x"}, nil
		}
		w := ts.do(http.MethodPatch, "/api/v1/todos/"+testTodoID, gin.H{"completed": false}, validToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing flag", func(t *testing.T) {
		w := newServer(t).do(http.MethodPatch, "/api/v1/todos/"+testTodoID, gin.H{}, validToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown todo", func(t *testing.T) {
		w := newServer(t).do(http.MethodPatch, "/api/v1/todos/"+testTodoID, gin.H{"completed": true}, validToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeleteTodo(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		ts := newServer(t)
		ts.todos.DeleteFunc = func(_ context.Context, params services.DeleteTodoParams) error {
			assert.Equal(t, testTodoID, params.ID)
			assert.Equal(t, testUserID, params.UserID)
			return nil
		}
		w := ts.do(http.MethodDelete, "/api/v1/todos/"+testTodoID, nil, validToken)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unknown todo", func(t *testing.T) {
		w := newServer(t).do(http.MethodDelete, "/api/v1/todos/"+testTodoID, nil, validToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMe(t *testing.T) {
	w := newServer(t).do(http.MethodGet, "/api/v1/auth/me", nil, validToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"user-1","email":"jane@example.com"}`, w.Body.String())
}

func TestLogout(t *testing.T) {
	ts := newServer(t)
	var loggedOut string
	ts.auth.LogoutFunc = func(_ context.Context, sessionID string) error {
		loggedOut = sessionID
		return nil
	}

	w := ts.do(http.MethodPost, "/api/v1/auth/logout", nil, validToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, testSessionID, loggedOut)
	assert.Len(t, w.Header().Values("Set-Cookie"), 2)
}

func TestLogin_UnknownUser(t *testing.T) {
	w := newServer(t).do(http.MethodPost, "/api/v1/auth/login",
		gin.H{"email": "nobody@example.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTodoChanges(t *testing.T) {
	ts := newTestServer(t, "127.0.0.1", Options{WriteTimeout: time.Second})
	server := httptest.NewServer(ts.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/realtime/todos"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+validToken)
	header.Set("User-Agent", testUserAgent)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return ts.hub.Len() == 1 },
		time.Second, 10*time.Millisecond)

	ts.hub.Publish(models.TodoChange{
		Type: models.ChangeInsert,
		New:  &models.Todo{ID: "other", UserID: "user-2", Text: "not mine"},
	})
	ts.hub.Publish(models.TodoChange{
		Type: models.ChangeInsert,
		New:  &models.Todo{ID: testTodoID, UserID: testUserID, Text: "mine"},
	})

	var change models.TodoChange
	require.NoError(t, wsjson.Read(ctx, conn, &change))
	assert.Equal(t, models.ChangeInsert, change.Type)
	require.NotNil(t, change.New)
	assert.Equal(t, testTodoID, change.New.ID)

	ts.hub.Close()
	err = wsjson.Read(ctx, conn, &change)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestTodoChanges_Unauthorized(t *testing.T) {
	w := newServer(t).do(http.MethodGet, "/api/v1/realtime/todos", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{services.ErrUserNotFound, http.StatusUnauthorized},
		{services.ErrSessionExpired, http.StatusUnauthorized},
		{services.ErrUserAlreadyExists, http.StatusConflict},
		{fmt.Errorf("lookup: %w", services.ErrTodoNotFound), http.StatusNotFound},
		{services.ErrTodoTextTooLong, http.StatusBadRequest},
		{errMockDatabase, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			apiErr := serviceError(tt.err)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}

	assert.Equal(t, "todo not found",
		serviceError(fmt.Errorf("lookup: %w", services.ErrTodoNotFound)).Message)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError),
		serviceError(errMockDatabase).Message)
}
