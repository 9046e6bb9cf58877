package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"todogram/internal/models"
)

const apiKeyHeader = "X-API-Key"

// Error is a non-2xx response from the task API.
type Error struct {
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("task api returned status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the task API, meaning the
// stored key can no longer act on behalf of this chat identity.
func IsUnauthorized(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusUnauthorized
}

// Client talks to the internal task API. The API key is a per-call parameter
// set on each request, never shared client state, so concurrent commands
// cannot leak one chat's credential onto another's request.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchTask returns the task or models.ErrNotFound when the API reports 404.
func (c *Client) FetchTask(ctx context.Context, apiKey string, taskID int) (*models.TaskSummary, error) {
	task := &models.TaskSummary{}
	err := c.do(ctx, apiKey, http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), nil, task)
	if err != nil {
		var gwErr *Error
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusNotFound {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

func (c *Client) ListAssignedTasks(ctx context.Context, apiKey string) ([]*models.TaskSummary, error) {
	var tasks []*models.TaskSummary
	if err := c.do(ctx, apiKey, http.MethodGet, "/api/tasks/my-assigned", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) ListLists(ctx context.Context, apiKey string) ([]*models.ListSummary, error) {
	var lists []*models.ListSummary
	if err := c.do(ctx, apiKey, http.MethodGet, "/api/lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ListID      int        `json:"listId"`
}

func (c *Client) CreateTask(ctx context.Context, apiKey string, req CreateTaskRequest) error {
	return c.do(ctx, apiKey, http.MethodPost, "/api/tasks", req, nil)
}

// UpdateTask sends a partial update; fields holds only the keys to change.
func (c *Client) UpdateTask(ctx context.Context, apiKey string, taskID int, fields map[string]any) error {
	return c.do(ctx, apiKey, http.MethodPut, fmt.Sprintf("/api/tasks/%d", taskID), fields, nil)
}

func (c *Client) DeleteTask(ctx context.Context, apiKey string, taskID int) error {
	return c.do(ctx, apiKey, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), nil, nil)
}

func (c *Client) do(ctx context.Context, apiKey, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set(apiKeyHeader, apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("task api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode task api response: %w", err)
		}
	}
	return nil
}
