// client.go talks to the forecast backend over HTTP. Replies are parsed
// leniently because the backend has shipped both PascalCase and camelCase
// envelopes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
)

// ControlOp is a command sent against an active task.
type ControlOp string

const (
	OpPause  ControlOp = "pause"
	OpResume ControlOp = "resume"
	OpCancel ControlOp = "cancel"
)

// Backend is the task API surface the controller drives.
type Backend interface {
	StartTask(ctx context.Context, req StartRequest) (string, error)
	TaskStatus(ctx context.Context, id string) (Task, error)
	ControlTask(ctx context.Context, id string, op ControlOp) (TaskState, error)
}

// Health is the reply of GET /health.
type Health struct {
	Status        string `json:"Status"`
	Message       string `json:"Message"`
	WebUI         string `json:"WebUI"`
	AgentsRunning bool   `json:"AgentsRunning"`
}

// APIClient is the resty-backed Backend.
type APIClient struct {
	client        *resty.Client
	log           Logger
	healthBackoff time.Duration
}

// NewAPIClient creates a client for the backend at cfg.BaseURL. Requests are
// not retried here: polling already retries, and a repeated pause or cancel
// must not be sent twice by the transport.
func NewAPIClient(cfg Config, log Logger) *APIClient {
	if log == nil {
		log = nopLogger{}
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &APIClient{
		client:        client,
		log:           log,
		healthBackoff: 250 * time.Millisecond,
	}
}

// StartTask submits a background forecast and returns the backend task id.
func (c *APIClient) StartTask(ctx context.Context, req StartRequest) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/tasks/start", req)
	if err != nil {
		return "", err
	}
	id := lookup(gjson.ParseBytes(body), "TaskId", "taskId", "task_id").String()
	if id == "" {
		return "", fmt.Errorf("no task id returned")
	}
	return id, nil
}

// TaskStatus fetches the current state of task id.
func (c *APIClient) TaskStatus(ctx context.Context, id string) (Task, error) {
	body, err := c.do(ctx, http.MethodGet, taskPath(id, "status"), nil)
	if err != nil {
		return Task{}, err
	}
	reply := gjson.ParseBytes(body)
	t := lookup(reply, "Task", "task")
	if !t.IsObject() {
		return Task{}, envelopeError(reply, "status reply has no task")
	}
	task := Task{
		ID:     lookup(t, "Id", "id").String(),
		State:  ParseTaskState(lookup(t, "State", "state").String()),
		Paused: lookup(t, "Paused", "paused").Bool(),
		Error:  lookup(t, "Error", "error").String(),
	}
	if task.ID == "" {
		task.ID = id
	}
	if r := lookup(t, "Result", "result"); r.IsObject() {
		if err := json.Unmarshal([]byte(r.Raw), &task.Result); err != nil {
			return Task{}, fmt.Errorf("decode task result: %w", err)
		}
	}
	return task, nil
}

// ControlTask sends pause, resume or cancel and returns the state the
// backend reports right after applying it.
func (c *APIClient) ControlTask(ctx context.Context, id string, op ControlOp) (TaskState, error) {
	body, err := c.do(ctx, http.MethodPost, taskPath(id, string(op)), nil)
	if err != nil {
		return "", err
	}
	reply := gjson.ParseBytes(body)
	if strings.EqualFold(lookup(reply, "Status", "status").String(), "error") {
		return "", envelopeError(reply, string(op)+" rejected")
	}
	return ParseTaskState(lookup(reply, "State", "state").String()), nil
}

// Forecast runs the synchronous forecast and returns the raw payload.
func (c *APIClient) Forecast(ctx context.Context, req ForecastRequest) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodPost, "/forecast", req)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode forecast reply: %w", err)
	}
	return raw, nil
}

// Health fetches the backend's liveness report.
func (c *APIClient) Health(ctx context.Context) (Health, error) {
	body, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return Health{}, err
	}
	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return Health{}, fmt.Errorf("decode health reply: %w", err)
	}
	return h, nil
}

// WaitHealthy polls /health with exponential backoff until the backend
// reports healthy or attempts run out.
func (c *APIClient) WaitHealthy(ctx context.Context, attempts int) (Health, error) {
	if attempts < 1 {
		attempts = 1
	}
	var last Health
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(c.healthBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		h, err := c.Health(ctx)
		if err != nil {
			c.log.Debug("health check failed", "error", err)
			return retry.RetryableError(err)
		}
		last = h
		if !strings.EqualFold(h.Status, "healthy") {
			return retry.RetryableError(fmt.Errorf("backend status %q", h.Status))
		}
		return nil
	})
	return last, err
}

func (c *APIClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	reqID := uuid.NewString()
	req := c.client.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", reqID)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	c.log.Debug("API request completed",
		"method", method, "path", path, "status", resp.StatusCode(), "request_id", reqID)
	if !resp.IsSuccess() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: errorText(resp.StatusCode(), resp.Body())}
	}
	if !gjson.ValidBytes(resp.Body()) {
		return nil, fmt.Errorf("malformed reply from %s", path)
	}
	return resp.Body(), nil
}

func taskPath(id, action string) string {
	return "/tasks/" + url.PathEscape(id) + "/" + action
}

// lookup returns the first of paths that exists in r.
func lookup(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// envelopeError turns {"Status":"Error","Message":...} into an APIError.
func envelopeError(reply gjson.Result, fallback string) error {
	msg := lookup(reply, "Message", "message", "detail").String()
	if msg == "" {
		msg = fallback
	}
	return &APIError{Message: msg}
}

func errorText(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := lookup(gjson.ParseBytes(body), "detail", "Message", "message").String(); msg != "" {
			return msg
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return text
}
