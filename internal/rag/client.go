package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/acadwrite/internal/retry"
)

var (
	// ErrTimeout is returned when a query, including task polling, does
	// not finish within its time budget.
	ErrTimeout = errors.New("rag query timed out")
	// ErrCollectionNotFound is returned for an unknown collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrQuery wraps failures reported by the service itself.
	ErrQuery = errors.New("rag query failed")
)

// ConnectionError reports that the service could not be reached.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to rag service at %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	Timeout      time.Duration // Whole-query budget including polling.
	PollInterval time.Duration // Delay between task status checks.
	MaxRetries   int
	Log          *slog.Logger
}

// Client communicates with the FileIntel-style RAG HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	poll       time.Duration
	maxRetries int
	log        *slog.Logger
}

func NewClient(baseURL, apiKey string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = retry.MaxRetries
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    opts.Timeout,
		poll:       opts.PollInterval,
		maxRetries: opts.MaxRetries,
		log:        opts.Log.With("component", "rag"),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type queryData struct {
	QueryResponse
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type taskData struct {
	TaskID string         `json:"task_id"`
	Status string         `json:"status"`
	Result *QueryResponse `json:"result"`
	Error  string         `json:"error"`
}

// Query asks a question against a collection. Transient failures are
// retried; the whole call is bounded by the request or client timeout and
// a deadline surfaces as ErrTimeout.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrQuery)
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrQuery)
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.query(qctx, req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, req.Collection)
		}
		return nil, err
	}
	return resp, nil
}

// query submits the question and, when the service answers with a task,
// polls it. The submit and each poll are retried on their own so a
// transient poll failure never resubmits the query.
func (c *Client) query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	qd, err := retry.Do(ctx, c.log, c.maxRetries, func(ctx context.Context) (*queryData, error) {
		return c.submit(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if qd.TaskID != "" && !isDone(qd.Status) {
		c.log.Debug("query submitted as task", "task_id", qd.TaskID, "collection", req.Collection)
		return c.awaitTask(ctx, qd.TaskID)
	}
	return &qd.QueryResponse, nil
}

func (c *Client) submit(ctx context.Context, req QueryRequest) (*queryData, error) {
	path := "/api/v2/collections/" + url.PathEscape(req.Collection) + "/query"
	resp, err := c.do(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, req.Collection)
	}
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var qd queryData
	if err := json.Unmarshal(data, &qd); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return &qd, nil
}

// awaitTask polls a submitted query until it completes, fails or ctx ends.
func (c *Client) awaitTask(ctx context.Context, taskID string) (*QueryResponse, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		td, err := retry.Do(ctx, c.log, c.maxRetries, func(ctx context.Context) (*taskData, error) {
			return c.taskStatus(ctx, taskID)
		})
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(td.Status) {
		case "completed", "success", "succeeded":
			if td.Result == nil {
				return nil, fmt.Errorf("%w: task %s completed without a result", ErrQuery, taskID)
			}
			return td.Result, nil
		case "failed", "failure", "error":
			return nil, fmt.Errorf("%w: task %s: %s", ErrQuery, taskID, td.Error)
		}
	}
}

func (c *Client) taskStatus(ctx context.Context, taskID string) (*taskData, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v2/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	var td taskData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("decode task status: %w", err)
	}
	return &td, nil
}

func isDone(status string) bool {
	switch strings.ToLower(status) {
	case "", "completed", "success", "succeeded":
		return true
	}
	return false
}

// Health reports whether the service answers its health check.
func (c *Client) Health(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return false, fmt.Errorf("decode health: %w", err)
	}
	return body.Status == "ok", nil
}

// ListCollections returns the collections the service knows about.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v2/collections", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	var cols []Collection
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}
	return cols, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ConnectionError{URL: c.baseURL, Err: err}
	}
	return resp, nil
}

// decodeEnvelope checks status and unwraps the {success,data,error} body.
func decodeEnvelope(resp *http.Response) (json.RawMessage, error) {
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &retry.RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("%w: status %d: %s", ErrQuery, resp.StatusCode, truncate(string(respBody), 200))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s", ErrQuery, msg)
	}
	return env.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
