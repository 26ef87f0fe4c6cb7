package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
)

const (
	defaultTimeout = 15 * time.Second
	jobsPath       = "/api/max-supplies"
)

// Client reads and updates production jobs through the MaxSupply backend REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout. A client passed with WithHTTPClient
// is copied, never modified.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithToken sends a bearer token with every request
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithClock overrides the clock used to resolve date windows
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a new backend client
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error returned by the backend
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error (status %d): %s", e.StatusCode, e.Message)
}

type listResponse struct {
	Data []entity.ProductionJob `json:"data"`
}

type itemResponse struct {
	Data entity.ProductionJob `json:"data"`
}

// List retrieves jobs due inside the filter window
func (c *Client) List(ctx context.Context, filter entity.JobFilter) ([]entity.ProductionJob, error) {
	params := url.Values{}
	if from, to, ok := filter.Range(c.now()); ok {
		params.Set("due_from", from.Format(time.RFC3339))
		params.Set("due_to", to.Format(time.RFC3339))
	}

	endpoint := c.baseURL + jobsPath
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var out listResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetByID retrieves a single job; a missing job yields nil without error
func (c *Client) GetByID(ctx context.Context, id string) (*entity.ProductionJob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.jobURL(id), nil)
	if err != nil {
		return nil, err
	}

	var out itemResponse
	if err := c.do(req, &out); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out.Data, nil
}

// UpdateStatus changes the status of a job
func (c *Client) UpdateStatus(ctx context.Context, id string, status entity.JobStatus) error {
	return c.patch(ctx, id, map[string]interface{}{"status": status})
}

// UpdateWorkCalculations replaces the work calculation payload of a job
func (c *Client) UpdateWorkCalculations(ctx context.Context, id string, calcs map[entity.ProductionType]entity.WorkCalc) error {
	return c.patch(ctx, id, map[string]interface{}{"work_calculations": calcs})
}

func (c *Client) patch(ctx context.Context, id string, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, c.jobURL(id), bytes.NewReader(body))
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		if isNotFound(err) {
			return entity.ErrJobNotFound
		}
		return err
	}
	return nil
}

func (c *Client) jobURL(id string) string {
	return c.baseURL + jobsPath + "/" + url.PathEscape(id)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func isNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}
