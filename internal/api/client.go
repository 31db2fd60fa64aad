package api

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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pders01/userdir/internal/debuglog"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 10 << 20
)

var errEmptyBody = errors.New("empty response body")

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// Client performs JSON GET requests against a base URL and converts every
// outcome into either decoded data or a classified Problem. It never retries.
type Client struct {
	baseURL *url.URL
	client  *http.Client

	mu      sync.RWMutex
	headers http.Header
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if opts.UserAgent != "" {
		headers.Set("User-Agent", opts.UserAgent)
	}
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	return &Client{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		headers: headers,
	}, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// SetHeader sets a header sent with every subsequent request.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
}

// SetHeaders sets several headers at once.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range headers {
		c.headers.Set(k, v)
	}
}

func (c *Client) resolve(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// Get requests path relative to the base URL and decodes the JSON body into
// out. It returns nil on success.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) *Problem {
	endpoint := c.resolve(path, params)
	requestID := uuid.NewString()
	log := debuglog.WithFields(map[string]interface{}{"request_id": requestID})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewProblem(KindUnknown, 0, fmt.Errorf("creating request: %w", err))
	}

	c.mu.RLock()
	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	c.mu.RUnlock()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		p := ProblemFromError(err)
		log.Warnf("GET %s failed after %s: %v", endpoint, time.Since(start), p)
		return p
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		p := ProblemFromError(fmt.Errorf("reading response: %w", err))
		log.Warnf("GET %s: %v", endpoint, p)
		return p
	}

	if p := ProblemFromStatus(resp.StatusCode); p != nil {
		log.Warnf("GET %s: %v", endpoint, p)
		return p
	}

	if out != nil {
		if err := decodeBody(body, out); err != nil {
			p := NewProblem(KindBadData, resp.StatusCode, err)
			log.Warnf("GET %s: %v", endpoint, p)
			return p
		}
	}

	log.Debugf("GET %s %d in %s", endpoint, resp.StatusCode, time.Since(start))
	return nil
}

func decodeBody(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errEmptyBody
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Get is the Result-returning form of Client.Get.
func Get[T any](ctx context.Context, c *Client, path string, params url.Values) Result[T] {
	var out T
	if p := c.Get(ctx, path, params, &out); p != nil {
		return Fail[T](p)
	}
	return OK(out)
}
