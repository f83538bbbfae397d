package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo/internal/realtime"
	"github.com/adanyl0v/go-todo/internal/services"
)

type Handler interface {
	HandleLogin(c *gin.Context)
	HandleRefresh(c *gin.Context)
	HandleRegister(c *gin.Context)
	HandleLogout(c *gin.Context)
	HandleMe(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)

	HandleGetTodos(c *gin.Context)
	HandleCreateTodo(c *gin.Context)
	HandleSetTodoCompleted(c *gin.Context)
	HandleDeleteTodo(c *gin.Context)
	HandleTodoChanges(c *gin.Context)

	HandleHealth(c *gin.Context)
}

// ChangeSubscriber hands out per-user streams of todo changes.
type ChangeSubscriber interface {
	Subscribe(userID string) *realtime.Subscription
}

type Options struct {
	// Origin patterns accepted on the websocket handshake besides the
	// request host itself.
	AllowedOrigins []string
	// Upper bound for writing a single change to a websocket.
	WriteTimeout time.Duration
	// Ping checks the database for the health endpoint.
	Ping func(ctx context.Context) error
}

type handlerImpl struct {
	logger   zerolog.Logger
	auth     services.AuthService
	sessions services.SessionService
	users    services.UserService
	todos    services.TodoService
	changes  ChangeSubscriber
	options  Options
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	sessionService services.SessionService,
	userService services.UserService,
	todoService services.TodoService,
	changes ChangeSubscriber,
	options Options,
) Handler {
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = 5 * time.Second
	}
	return &handlerImpl{
		logger:   logger,
		auth:     authService,
		sessions: sessionService,
		users:    userService,
		todos:    todoService,
		changes:  changes,
		options:  options,
	}
}

// RegisterRoutes mounts the v1 API on the router.
func RegisterRoutes(router gin.IRouter, h Handler) {
	router.GET("/healthz", h.HandleHealth)

	v1Router := router.Group("/api/v1")

	authRouter := v1Router.Group("/auth")
	authRouter.POST("/login", h.HandleLogin)
	authRouter.POST("/refresh", h.HandleRefresh)
	authRouter.POST("/register", h.HandleRegister)
	authRouter.POST("/logout", h.HandleAuthMiddleware, h.HandleLogout)
	authRouter.GET("/me", h.HandleAuthMiddleware, h.HandleMe)

	todosRouter := v1Router.Group("/todos", h.HandleAuthMiddleware)
	todosRouter.GET("", h.HandleGetTodos)
	todosRouter.POST("", h.HandleCreateTodo)
	todosRouter.PATCH("/:id", h.HandleSetTodoCompleted)
	todosRouter.DELETE("/:id", h.HandleDeleteTodo)

	v1Router.GET("/realtime/todos", h.HandleAuthMiddleware, h.HandleTodoChanges)
}
