package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"todos/backend/internal/todo"
)

// TodoStore is what the handlers need from persistence; *todo.Store implements it.
type TodoStore interface {
	Get(ctx context.Context, id int32) (todo.Todo, bool, error)
	List(ctx context.Context) ([]todo.Todo, error)
	Create(ctx context.Context, in todo.NewTodo) (todo.Todo, error)
	Complete(ctx context.Context, id int32) (todo.Todo, bool, error)
}

type Options struct {
	Log        *slog.Logger
	AccessLog  io.Writer // gin request lines; defaults to stderr so stdout carries only JSON
	JWTSecret  string
	CORSMaxAge time.Duration
}

type Server struct {
	R     *gin.Engine
	Store TodoStore
	Now   func() time.Time

	log *slog.Logger
}

func NewServer(store TodoStore, opts Options) *Server {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = os.Stderr
	}
	r := gin.New()
	r.Use(gin.LoggerWithWriter(opts.AccessLog), gin.Recovery(), RequestID(), CORS(opts.CORSMaxAge))

	s := &Server{R: r, Store: store, Now: time.Now, log: opts.Log}

	r.GET("/", s.index)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": s.Now().UTC()})
	})

	todos := r.Group("/todos")
	if opts.JWTSecret != "" {
		todos.Use(AuthRequired(opts.JWTSecret))
	}
	{
		todos.GET("", s.listTodos)
		todos.POST("", s.createTodo)
		todos.GET("/:id", s.getTodo)
		todos.PATCH("/:id/complete", s.completeTodo)
	}

	return s
}

func (s *Server) index(c *gin.Context) {
	c.String(http.StatusOK, "Hello world!")
}

func (s *Server) getTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, found, err := s.Store.Get(c.Request.Context(), id)
	if err != nil {
		s.storageFailure(c, err, "Internal server error")
		return
	}
	if !found {
		notFound(c, strconv.Itoa(int(id)))
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) listTodos(c *gin.Context) {
	todos, err := s.Store.List(c.Request.Context())
	if err != nil {
		s.storageFailure(c, err, "Failed to retrieve todos")
		return
	}
	c.JSON(http.StatusOK, todos)
}

type createTodoRequest struct {
	Title     *string `json:"title" binding:"required"`
	Completed *bool   `json:"completed" binding:"required"`
}

func (s *Server) createTodo(c *gin.Context) {
	var req createTodoRequest
	if err := bindStrictJSON(c, &req); err != nil {
		s.logger(c).Debug("rejected create body", "error", err)
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}
	t, err := s.Store.Create(c.Request.Context(), todo.NewTodo{Title: *req.Title, Completed: *req.Completed})
	if err != nil {
		s.storageFailure(c, err, "Failed to create todo")
		return
	}
	s.logger(c).Debug("todo created", "id", t.ID)
	c.JSON(http.StatusCreated, t)
}

// bindStrictJSON binds a body holding exactly one JSON value; trailing data is rejected.
func bindStrictJSON(c *gin.Context, obj any) error {
	raw, err := c.GetRawData()
	if err != nil {
		return err
	}
	if !json.Valid(raw) {
		return errors.New("body is not a single JSON value")
	}
	return binding.JSON.BindBody(raw, obj)
}

func (s *Server) completeTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, found, err := s.Store.Complete(c.Request.Context(), id)
	if err != nil {
		s.storageFailure(c, err, "Failed to update todo")
		return
	}
	if !found {
		notFound(c, strconv.Itoa(int(id)))
		return
	}
	c.JSON(http.StatusOK, t)
}

// pathID parses :id. Anything that is not a 32-bit integer cannot name a todo.
func pathID(c *gin.Context) (int32, bool) {
	raw := c.Param("id")
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		notFound(c, raw)
		return 0, false
	}
	return int32(n), true
}

func notFound(c *gin.Context, id string) {
	c.String(http.StatusNotFound, fmt.Sprintf("No todo found with id: %s", id))
}

// storageFailure logs the detail and answers with a generic 500.
func (s *Server) storageFailure(c *gin.Context, err error, msg string) {
	log := s.logger(c)
	var se *todo.StorageError
	if errors.As(err, &se) {
		log = log.With("op", se.Op, "kind", se.Kind.String())
	}
	log.Error("database error", "error", err)
	c.String(http.StatusInternalServerError, msg)
}

func (s *Server) logger(c *gin.Context) *slog.Logger {
	log := s.log.With("request_id", c.GetString(requestIDKey), "path", c.FullPath())
	if sub := c.GetString(subjectKey); sub != "" {
		log = log.With("subject", sub)
	}
	return log
}
