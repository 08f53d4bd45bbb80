package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"decisionctl/internal/logging"
	"decisionctl/internal/types"
)

const (
	defaultBaseURL  = "http://127.0.0.1:8000"
	defaultTimeout  = 60 * time.Second
	requestIDHeader = "X-Request-ID"
)

type Client struct {
	baseURL     string
	http        *http.Client
	logger      logging.Logger
	streamDebug bool
	newID       func() string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http = &http.Client{Timeout: timeout, Transport: c.http.Transport}
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStreamDebug logs push-channel lifecycle at info level regardless of the
// configured level. DECISIONCTL_STREAM_DEBUG=1 has the same effect.
func WithStreamDebug(enabled bool) Option {
	return func(c *Client) {
		c.streamDebug = enabled
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logging.Nop(),
		newID:   logging.NewRequestID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if streamDebugEnv() {
		c.streamDebug = true
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]*types.Project, error) {
	var resp ProjectsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/projects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// Chat runs one stateless turn.
func (c *Client) Chat(ctx context.Context, projectID string, req ChatRequest) (*ChatResponse, error) {
	path, err := projectPath(projectID, "chat")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}
	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Ledger(ctx context.Context, projectID string) (*LedgerResponse, error) {
	path, err := projectPath(projectID, "ledger")
	if err != nil {
		return nil, err
	}
	var resp LedgerResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Memory(ctx context.Context, projectID, memoryID string) (*types.Memory, error) {
	path, err := projectPath(projectID, "memory", memoryID)
	if err != nil {
		return nil, err
	}
	var memory types.Memory
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &memory); err != nil {
		return nil, err
	}
	return &memory, nil
}

func (c *Client) MemoryVersions(ctx context.Context, projectID, memoryID string) ([]types.MemoryVersion, error) {
	path, err := projectPath(projectID, "memory", memoryID, "versions")
	if err != nil {
		return nil, err
	}
	var versions []types.MemoryVersion
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// DeleteMemory supersedes the record; the backend never hard-deletes.
func (c *Client) DeleteMemory(ctx context.Context, projectID, memoryID string) (*DeleteMemoryResponse, error) {
	path, err := projectPath(projectID, "memory", memoryID)
	if err != nil {
		return nil, err
	}
	var resp DeleteMemoryResponse
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResolveConflict(ctx context.Context, projectID string, req ResolveConflictRequest) (*ResolveConflictResponse, error) {
	path, err := projectPath(projectID, "resolve-conflict")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ExistingMemoryID) == "" {
		return nil, errors.New("existing memory id is required")
	}
	switch req.Resolution {
	case ResolutionKeep, ResolutionOverride:
	default:
		return nil, fmt.Errorf("invalid resolution %q", req.Resolution)
	}
	var resp ResolveConflictResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) StartWorkSession(ctx context.Context, projectID, taskDescription string) (*StartWorkSessionResponse, error) {
	path, err := projectPath(projectID, "work", "start")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(taskDescription) == "" {
		return nil, errors.New("task description is required")
	}
	req := StartWorkSessionRequest{TaskDescription: taskDescription}
	var resp StartWorkSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActiveWorkSession returns nil without error when the project has no open session.
func (c *Client) ActiveWorkSession(ctx context.Context, projectID string) (*types.WorkSession, error) {
	path, err := projectPath(projectID, "work", "active")
	if err != nil {
		return nil, err
	}
	var session *types.WorkSession
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	if session != nil && strings.TrimSpace(session.ID) == "" {
		return nil, nil
	}
	return session, nil
}

func (c *Client) WorkSessionMessages(ctx context.Context, projectID, sessionID string) ([]types.Message, error) {
	path, err := projectPath(projectID, "work", sessionID, "messages")
	if err != nil {
		return nil, err
	}
	var messages []types.Message
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) SendWorkMessage(ctx context.Context, projectID, sessionID string, req WorkMessageRequest) (*WorkMessageResponse, error) {
	path, err := projectPath(projectID, "work", sessionID, "message")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}
	var resp WorkMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) EndWorkSession(ctx context.Context, projectID, sessionID string) (*EndWorkSessionResponse, error) {
	path, err := projectPath(projectID, "work", sessionID, "end")
	if err != nil {
		return nil, err
	}
	var resp EndWorkSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) WorkSessionHistory(ctx context.Context, projectID string, limit int) ([]types.WorkSession, error) {
	path, err := projectPath(projectID, "work", "history")
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var sessions []types.WorkSession
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func projectPath(projectID string, segments ...string) (string, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", errors.New("project id is required")
	}
	var b strings.Builder
	b.WriteString("/projects/")
	b.WriteString(url.PathEscape(projectID))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return "", errors.New("path segment is required")
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
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
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := c.newID()
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			logging.F("method", method),
			logging.F("path", path),
			logging.F("request_id", requestID),
			logging.Err(err),
		)
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("request",
		logging.F("method", method),
		logging.F("path", path),
		logging.F("status", resp.StatusCode),
		logging.F("request_id", requestID),
		logging.F("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeAPIError understands both the backend's {"detail": ...} bodies and the
// {"error": ...} shape used by its middleware. Detail may be a string or a
// validation list.
func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if msg := detailMessage(payload.Detail); msg != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if strings.TrimSpace(item.Msg) != "" {
				msgs = append(msgs, strings.TrimSpace(item.Msg))
			}
		}
		return strings.Join(msgs, "; ")
	}
	return strings.TrimSpace(string(raw))
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func IsNotFound(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusNotFound
}

// IsUnreachable reports transport failures where no response came back at all.
func IsUnreachable(err error) bool {
	if err == nil || AsAPIError(err) != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
