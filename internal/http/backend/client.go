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

	"github.com/bwise1/bookgroups/util/tracing"
	"github.com/bwise1/bookgroups/util/values"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
)

const (
	defaultTimeout   = 10 * time.Second
	DefaultPageLimit = 5

	// maxErrorBody bounds how much of a failed response is kept for logging.
	maxErrorBody = 4 << 10
)

type tokenKey struct{}

// WithToken attaches the caller's access token; the client forwards it as a
// bearer token on every request made with the returned context.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client is the single request dispatcher shared by every reading-group API call.
type Client struct {
	BaseURL       *url.URL
	HTTPClient    *http.Client
	RequestSource string
	PageLimit     int
}

// NewClient creates a client for the reading-group API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse api base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: u,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		PageLimit: DefaultPageLimit,
	}, nil
}

// StatusError is returned by do when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// buildURL constructs the API URL with query parameters.
func (c *Client) buildURL(endpoint string, queryParams interface{}) (string, error) {
	u := *c.BaseURL
	u.Path = c.BaseURL.Path + endpoint

	if queryParams != nil {
		v, err := query.Values(queryParams)
		if err != nil {
			return "", errors.Wrap(err, "encode query parameters")
		}
		u.RawQuery = v.Encode()
	}
	return u.String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, queryParams, body interface{}) (*http.Request, error) {
	reqURL, err := c.buildURL(endpoint, queryParams)
	if err != nil {
		return nil, errors.Wrap(err, "build URL")
	}

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, payload)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.RequestSource != "" {
		req.Header.Set(values.HeaderRequestSource, c.RequestSource)
	}
	if tc := tracing.FromContext(ctx); tc.RequestID != "" {
		req.Header.Set(values.HeaderRequestID, tc.RequestID)
	}
	if token := tokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes HTTP requests and decodes JSON responses.
func (c *Client) do(req *http.Request, v interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute HTTP request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty body decodes as "no payload"; callers check for nil.
			return nil
		}
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// send builds and executes one request.
func (c *Client) send(ctx context.Context, method, endpoint string, queryParams, body, v interface{}) error {
	req, err := c.newRequest(ctx, method, endpoint, queryParams, body)
	if err != nil {
		return err
	}
	return c.do(req, v)
}

func (c *Client) pageLimit() int {
	if c.PageLimit <= 0 {
		return DefaultPageLimit
	}
	return c.PageLimit
}
