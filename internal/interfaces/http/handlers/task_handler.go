package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// TaskQueue is the part of the queue the API exposes.
type TaskQueue interface {
	Submit(ctx context.Context, req task.Request) (*task.Task, bool, error)
	ListByStatus(s task.Status) []*task.Task
	Get(id string) (*task.Task, error)
	Clear(ctx context.Context) error
	Subscribe(ticks bool) (<-chan struct{}, func())
}

// TaskList is the body of GET /tasks and of every watch event.
type TaskList struct {
	Tasks   []*task.Task `json:"tasks"`
	Running int          `json:"running"`
}

type TaskHandler struct {
	queue     TaskQueue
	logger    logging.Logger
	heartbeat time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

func NewTaskHandler(q TaskQueue, logger logging.Logger) *TaskHandler {
	return &TaskHandler{queue: q, logger: logger, heartbeat: 15 * time.Second, closed: make(chan struct{})}
}

// CloseStreams ends every open watch stream.  http.Server.Shutdown does not
// cancel running handlers, so the server calls this when it begins draining.
func (h *TaskHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closed) })
}

// Submit handles POST /tasks. A new task answers 201; resubmitting a known
// id answers 200 with the existing task.
func (h *TaskHandler) Submit(c *gin.Context) {
	var req task.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeTaskInvalid, "invalid task request").WithDetail(err.Error()))
		return
	}
	t, created, err := h.queue.Submit(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, t)
}

// List handles GET /tasks?status=.
func (h *TaskHandler) List(c *gin.Context) {
	status := task.Status(c.Query("status"))
	switch status {
	case "", task.StatusRunning, task.StatusCompleted, task.StatusFailed:
	default:
		writeError(c, errors.InvalidParam("unknown status filter").WithDetail("status="+string(status)))
		return
	}
	c.JSON(http.StatusOK, h.snapshot(status))
}

func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.queue.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Clear handles DELETE /tasks.
func (h *TaskHandler) Clear(c *gin.Context) {
	if err := h.queue.Clear(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Watch handles GET /events/tasks: a server-sent event stream carrying the
// full task list after every change, progress ticks included.
func (h *TaskHandler) Watch(c *gin.Context) {
	changes, cancel := h.queue.Subscribe(true)
	defer cancel()
	// Streams outlive the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	send := func() {
		c.SSEvent("tasks", h.snapshot(""))
		c.Writer.Flush()
	}
	send()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Task watch closed", logging.String(logging.FieldRequestID, logging.RequestIDFromContext(ctx)))
			return
		case <-h.closed:
			return
		case <-changes:
			send()
		case <-heartbeat.C:
			_, _ = c.Writer.WriteString(": ping\n\n")
			c.Writer.Flush()
		}
	}
}

func (h *TaskHandler) snapshot(status task.Status) TaskList {
	tasks := h.queue.ListByStatus(status)
	running := 0
	for _, t := range tasks {
		if t.Status == task.StatusRunning {
			running++
		}
	}
	return TaskList{Tasks: tasks, Running: running}
}
