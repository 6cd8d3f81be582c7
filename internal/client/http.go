package client

import (
	"bufio"
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

	"github.com/alfredjeanlab/dropin/internal/geocode"
	"github.com/alfredjeanlab/dropin/internal/model"
)

// HTTPClient implements RunsClient over the REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	stream     *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:3001").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stream:     &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) ListRuns(ctx context.Context) ([]*model.Run, error) {
	var runs []*model.Run
	if err := c.doJSON(ctx, http.MethodGet, "/runs", nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *HTTPClient) GetRun(ctx context.Context, id, token string) (*model.Run, error) {
	var run model.Run
	if err := c.doJSON(ctx, http.MethodGet, runPath(id, token), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateRun creates a run. The returned run carries its edit token.
func (c *HTTPClient) CreateRun(ctx context.Context, fields map[string]any) (*model.Run, error) {
	var run model.Run
	if err := c.doJSON(ctx, http.MethodPost, "/runs", fields, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *HTTPClient) UpdateRun(ctx context.Context, id, token string, fields map[string]any) (*model.Run, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	var run model.Run
	if err := c.doJSON(ctx, http.MethodPut, runPath(id, token), fields, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *HTTPClient) Geocode(ctx context.Context, q string) ([]geocode.Result, error) {
	var results []geocode.Result
	if err := c.doJSON(ctx, http.MethodGet, "/geocode?q="+url.QueryEscape(q), nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// StreamEvents reads GET /runs/events.
func (c *HTTPClient) StreamEvents(ctx context.Context, topics []string, fn func(Event) error) error {
	path := "/runs/events"
	if len(topics) > 0 {
		path += "?topics=" + url.QueryEscape(strings.Join(topics, ","))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}

	var evt Event
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if evt.Topic != "" || evt.Data != nil {
				if err := fn(evt); err != nil {
					return err
				}
			}
			evt = Event{}
		case strings.HasPrefix(line, ":"):
			// keepalive
		case strings.HasPrefix(line, "id:"):
			evt.ID = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "event:"):
			evt.Topic = strings.TrimSpace(line[6:])
		case strings.HasPrefix(line, "data:"):
			evt.Data = append(evt.Data, strings.TrimPrefix(line[5:], " ")...)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

func runPath(id, token string) string {
	p := "/runs/" + url.PathEscape(id)
	if token != "" {
		p += "?token=" + url.QueryEscape(token)
	}
	return p
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

func apiError(status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

// doJSON performs an HTTP request with optional JSON body and decodes the
// "data" member of the response envelope into result.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, respBody)
	}

	if result != nil {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}
