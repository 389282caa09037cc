package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer credential attached to outbound requests.
// An empty token means "no credential"; the Authorization header is omitted.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed credential, mostly useful in tests and scripts.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Request describes the optional parts of an API call.
type Request struct {
	Query url.Values
	Body  any

	// Public marks endpoints that authenticate the caller themselves (login/register).
	// A 401 from a public endpoint never fires the unauthorized handler.
	Public bool
}

// Client is the single HTTP gateway to the FreelanceFlow API.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	logger  *log.Logger

	onUnauthorized func()
}

type Option func(*Client)

// WithHTTPClient replaces the transport client (default: http.DefaultClient).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUnauthorizedHandler registers fn to run after a credentialed, non-public request
// is rejected with 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		tokens:  tokens,
		http:    http.DefaultClient,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do performs one request and decodes a JSON response into out (when out is non-nil).
// Failures are returned as *Error; nothing is retried.
func (c *Client) Do(ctx context.Context, method, path string, req Request, out any) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Error{Method: method, Path: path, err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	token := strings.TrimSpace(c.tokens.Token())
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Printf("api: %s %s: transport error: %v", method, path, err)
		return &Error{Method: method, Path: path, err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Method: method, Path: path, Status: resp.StatusCode, err: err}
	}
	c.logger.Printf("api: %s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: serverMessage(respBody),
		}
		// A credential replaced while the request was in flight is not the session's to expire.
		if resp.StatusCode == http.StatusUnauthorized && token != "" && !req.Public && c.onUnauthorized != nil &&
			strings.TrimSpace(c.tokens.Token()) == token {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Method: method, Path: path, Status: resp.StatusCode, err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func serverMessage(b []byte) string {
	var env errorEnvelope
	if json.Unmarshal(b, &env) == nil {
		return strings.TrimSpace(env.Error.Message)
	}
	return ""
}
