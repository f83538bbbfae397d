package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo/internal/models"
	"github.com/adanyl0v/go-todo/internal/services"
)

type todoResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

func newTodoResponse(todo *models.Todo) todoResponse {
	return todoResponse{
		ID:        todo.ID,
		UserID:    todo.UserID,
		Text:      todo.Text,
		Completed: todo.Completed,
		CreatedAt: todo.CreatedAt,
	}
}

func (h *handlerImpl) HandleGetTodos(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	todos, err := h.todos.GetTodosByUserID(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get todos")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := make([]todoResponse, len(todos))
	for i, todo := range todos {
		response[i] = newTodoResponse(todo)
	}

	h.logger.Debug().
		Int("count", len(response)).
		Msg("fetched todos")
	c.JSON(http.StatusOK, response)
}

type createTodoRequest struct {
	Text string `json:"text" binding:"required"`
	// Optional, must match the caller when given.
	UserID *string `json:"user_id,omitempty"`
}

func (h *handlerImpl) HandleCreateTodo(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req createTodoRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if req.UserID != nil && *req.UserID != userID {
		h.logger.Error().
			Str("user_id", userID).
			Str("requested_user_id", *req.UserID).
			Msg("attempt to create a todo for another user")
		abort(c, newForbiddenError(errForeignOwner.Error()))
		return
	}

	todo, err := h.todos.CreateTodo(c, services.CreateTodoParams{
		UserID: userID,
		Text:   req.Text,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to create todo")
		abort(c, serviceError(err))
		return
	}

	c.JSON(http.StatusCreated, newTodoResponse(todo))
}

type setTodoCompletedRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

func (h *handlerImpl) HandleSetTodoCompleted(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req setTodoCompletedRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	todo, err := h.todos.SetTodoCompleted(c, services.SetTodoCompletedParams{
		ID:        c.Param("id"),
		UserID:    userID,
		Completed: *req.Completed,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to set todo completed")
		abort(c, serviceError(err))
		return
	}

	c.JSON(http.StatusOK, newTodoResponse(todo))
}

func (h *handlerImpl) HandleDeleteTodo(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	err := h.todos.DeleteTodo(c, services.DeleteTodoParams{
		ID:     c.Param("id"),
		UserID: userID,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to delete todo")
		abort(c, serviceError(err))
		return
	}

	c.Status(http.StatusNoContent)
}
