package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/ChemXGen/internal/domain/task"
)

// Task and request types shared with the server.
type (
	Task        = task.Task
	TaskRequest = task.Request
	Settings    = task.Settings
	Kind        = task.Kind
	Status      = task.Status
)

// TaskList mirrors the body of GET /tasks and of each watch event.
type TaskList struct {
	Tasks   []*Task `json:"tasks"`
	Running int     `json:"running"`
}

// TasksClient covers the task queue endpoints.
type TasksClient struct {
	client *Client
}

// Submit enqueues an analysis. An empty ID is filled with a fresh UUID so
// that a retried submit stays idempotent.
func (tc *TasksClient) Submit(ctx context.Context, req TaskRequest) (*Task, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	var out Task
	if err := tc.client.post(ctx, "/tasks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns tasks newest first, optionally filtered by status.
func (tc *TasksClient) List(ctx context.Context, status Status) (*TaskList, error) {
	path := "/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out TaskList
	if err := tc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (tc *TasksClient) Get(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := tc.client.get(ctx, "/tasks/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clear removes every task.
func (tc *TasksClient) Clear(ctx context.Context) error {
	return tc.client.delete(ctx, "/tasks")
}

// Watch streams task list snapshots until ctx is done or the server closes
// the stream. The returned channel is closed when the stream ends; the error
// channel then carries at most one error.
func (tc *TasksClient) Watch(ctx context.Context) (<-chan TaskList, <-chan error, error) {
	c := tc.client
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/events/tasks", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.decorate(req, uuid.NewString())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, nil, decodeAPIError(resp.StatusCode, body, req.Header.Get("X-Request-ID"))
	}

	out := make(chan TaskList, 1)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		defer resp.Body.Close()
		if err := readEvents(resp, func(event, data string) error {
			if event != "tasks" {
				return nil
			}
			var list TaskList
			if err := json.Unmarshal([]byte(data), &list); err != nil {
				return fmt.Errorf("decode task event: %w", err)
			}
			select {
			case out <- list:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}); err != nil && ctx.Err() == nil {
			errc <- err
		}
	}()
	return out, errc, nil
}

// readEvents parses a text/event-stream body, calling fn once per event.
func readEvents(resp *http.Response, fn func(event, data string) error) error {
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	var event string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				if err := fn(event, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return sc.Err()
}
