// Package client is the typed data-access layer for the smart-notes REST API.
//
// Each entity service issues exactly one HTTP request per call and returns the
// decoded record or records. Failures with a non-2xx status are reported as
// *APIError; transport and decode failures are wrapped and returned as-is.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benvon/smart-notes/internal/models"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 15 * time.Second
	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 10 << 20
)

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client talks to one smart-notes server. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *zap.Logger
	cache   *Cache

	Notes    *NotesService
	Tasks    *TasksService
	Projects *ProjectsService
	Areas    *AreasService
	Tags     *TagsService
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for cache and feed diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCacheMaxAge sets how long cached reads stay fresh.
func WithCacheMaxAge(d time.Duration) Option {
	return func(c *Client) { c.cache = NewCache(d) }
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
		cache:   NewCache(DefaultMaxAge),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache.SetFetchTimeout(c.http.Timeout)

	c.Notes = &NotesService{service[models.Note, models.NotePayload]{c: c, ep: notesEndpoints}}
	c.Tasks = &TasksService{service[models.Task, models.TaskPayload]{c: c, ep: tasksEndpoints}}
	c.Projects = &ProjectsService{service[models.Project, models.ProjectPayload]{c: c, ep: projectsEndpoints}}
	c.Areas = &AreasService{service[models.Area, models.AreaPayload]{c: c, ep: areasEndpoints}}
	c.Tags = &TagsService{service[models.Tag, models.TagPayload]{c: c, ep: tagsEndpoints}}
	return c, nil
}

// Cache returns the client's read cache.
func (c *Client) Cache() *Cache { return c.cache }

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/api/auth/me", failure: "Failed to fetch current user."})
	if err != nil {
		return nil, err
	}
	return decodeRecord[models.User](raw, "user")
}

// resolve turns an API path (or absolute URL) into a request URL.
func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u := c.baseURL.ResolveReference(ref)
	if !ref.IsAbs() {
		u.Path = c.baseURL.Path + ref.Path
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u, nil
}

// sameOrigin reports whether u points at the configured server. The token
// is only sent there.
func (c *Client) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.baseURL.Scheme) && strings.EqualFold(u.Host, c.baseURL.Host)
}

// request is one API call. failure is the message used when the call fails.
type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	header  map[string]string
	failure string
	// replaceMessage reports the server message on its own instead of
	// appending it to failure.
	replaceMessage bool
}

// do performs req and returns the response body with the success envelope
// removed. A 204 yields a nil body.
func (c *Client) do(ctx context.Context, req request) (json.RawMessage, error) {
	target, err := c.resolve(req.path, req.query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" && c.sameOrigin(target) {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range req.header {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.TrimSuffix(req.failure, "."), err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, raw, req.failure, req.replaceMessage)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return unwrapEnvelope(raw), nil
}

// errorBody is the server's failure envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newAPIError(status int, raw []byte, failure string, replace bool) *APIError {
	var eb errorBody
	serverMsg := ""
	if json.Unmarshal(raw, &eb) == nil {
		serverMsg = eb.Message
		if serverMsg == "" {
			serverMsg = eb.Error
		}
	}
	switch {
	case serverMsg == "":
		return &APIError{StatusCode: status, Message: failure}
	case replace:
		return &APIError{StatusCode: status, Message: serverMsg}
	default:
		return &APIError{StatusCode: status, Message: failure + " " + serverMsg}
	}
}

// unwrapEnvelope returns data from {"success": true, "data": ...}; any other
// body is returned unchanged.
func unwrapEnvelope(raw []byte) json.RawMessage {
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Success == nil || env.Data == nil {
		return raw
	}
	return env.Data
}

// decodeList returns body[plural] when the body is an object carrying that
// key, otherwise the body itself decoded as a list.
func decodeList[T any](raw json.RawMessage, plural string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", plural, err)
		}
		if inner, ok := obj[plural]; ok {
			raw = inner
		}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", plural, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
