package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/testutil"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

type fakeQueue struct {
	mu      sync.Mutex
	tasks   []*task.Task
	cleared bool
	changes chan struct{}
	subbed  chan struct{}
}

func newFakeQueue(tasks ...*task.Task) *fakeQueue {
	return &fakeQueue{tasks: tasks, changes: make(chan struct{}, 1), subbed: make(chan struct{})}
}

func (f *fakeQueue) Submit(_ context.Context, req task.Request) (*task.Task, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == req.ID {
			return t, false, nil
		}
	}
	t := task.New(req.ID, req.Molecule, req.Tool, req.Settings, time.Now())
	f.tasks = append([]*task.Task{t}, f.tasks...)
	return t, true, nil
}

func (f *fakeQueue) ListByStatus(s task.Status) []*task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*task.Task
	for _, t := range f.tasks {
		if s == "" || t.Status == s {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeQueue) Get(id string) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, errors.New(errors.ErrCodeTaskNotFound, "task not found")
}

func (f *fakeQueue) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = nil
	f.cleared = true
	return nil
}

func (f *fakeQueue) Subscribe(bool) (<-chan struct{}, func()) {
	close(f.subbed)
	return f.changes, func() {}
}

func taskRouter(q TaskQueue) *gin.Engine {
	h := NewTaskHandler(q, testutil.NewMockLogger())
	r := newEngine(nil)
	r.POST("/tasks", h.Submit)
	r.GET("/tasks", h.List)
	r.GET("/tasks/:id", h.Get)
	r.DELETE("/tasks", h.Clear)
	r.GET("/events/tasks", h.Watch)
	return r
}

func TestSubmit_CreatedThenDuplicate(t *testing.T) {
	r := taskRouter(newFakeQueue())
	req := task.Request{ID: "t-1", Tool: task.KindToxicity, Molecule: "CCO"}

	w := doJSON(t, r, http.MethodPost, "/tasks", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var got task.Task
	decode(t, w, &got)
	assert.Equal(t, "t-1", got.ID)
	assert.Equal(t, task.StatusRunning, got.Status)

	w = doJSON(t, r, http.MethodPost, "/tasks", req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmit_Invalid(t *testing.T) {
	r := taskRouter(newFakeQueue())

	w := doJSON(t, r, http.MethodPost, "/tasks", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeTaskInvalid), errorCode(t, w))

	w = doJSON(t, r, http.MethodPost, "/tasks", map[string]string{"tool": "docking", "molecule": "C"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeTaskInvalid), errorCode(t, w))
}

func TestList_FilterAndRunningCount(t *testing.T) {
	done := task.New("a", "C", task.KindProperty, nil, time.Now())
	done.Status = task.StatusCompleted
	q := newFakeQueue(task.New("b", "CC", task.KindSynthesis, nil, time.Now()), done)
	r := taskRouter(q)

	w := doJSON(t, r, http.MethodGet, "/tasks", nil)
	var all TaskList
	decode(t, w, &all)
	assert.Len(t, all.Tasks, 2)
	assert.Equal(t, 1, all.Running)

	w = doJSON(t, r, http.MethodGet, "/tasks?status=completed", nil)
	var completed TaskList
	decode(t, w, &completed)
	require.Len(t, completed.Tasks, 1)
	assert.Equal(t, "a", completed.Tasks[0].ID)
	assert.Zero(t, completed.Running)

	w = doJSON(t, r, http.MethodGet, "/tasks?status=paused", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGet_NotFound(t *testing.T) {
	r := taskRouter(newFakeQueue())
	w := doJSON(t, r, http.MethodGet, "/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(errors.ErrCodeTaskNotFound), errorCode(t, w))
}

func TestClear(t *testing.T) {
	q := newFakeQueue(task.New("a", "C", task.KindProperty, nil, time.Now()))
	r := taskRouter(q)
	w := doJSON(t, r, http.MethodDelete, "/tasks", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, q.cleared)
}

func TestWatch_StreamsSnapshots(t *testing.T) {
	q := newFakeQueue(task.New("a", "C", task.KindProperty, nil, time.Now()))
	r := taskRouter(q)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events/tasks", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	finished := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(finished)
	}()

	<-q.subbed
	q.changes <- struct{}{}
	// The buffered channel drains once the handler picks the change up.
	require.Eventually(t, func() bool { return len(q.changes) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancellation")
	}

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:tasks"), 1)
	assert.Contains(t, body, `"running":1`)
}

func TestWatch_CloseStreamsEndsWatch(t *testing.T) {
	q := newFakeQueue()
	h := NewTaskHandler(q, testutil.NewMockLogger())
	r := newEngine(nil)
	r.GET("/events/tasks", h.Watch)

	w := httptest.NewRecorder()
	finished := make(chan struct{})
	go func() {
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/tasks", nil))
		close(finished)
	}()

	<-q.subbed
	h.CloseStreams()
	h.CloseStreams()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after CloseStreams")
	}
	assert.Contains(t, w.Body.String(), "event:tasks")
}
