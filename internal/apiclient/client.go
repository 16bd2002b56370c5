// Package apiclient talks to the registration backend's REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the hosted backend the portal was built against.
const DefaultBaseURL = "https://backend-jain.vercel.app"

// Per-call deadlines.
const (
	RegisterTimeout = 30 * time.Second
	StatusTimeout   = 15 * time.Second
	ListTimeout     = 10 * time.Second
	AdminTimeout    = 20 * time.Second
	UploadTimeout   = 60 * time.Second
)

const maxResponseBytes = 8 << 20

// Authenticator supplies the admin bearer token and is told when the
// backend rejects it.
type Authenticator interface {
	Token() string
	Unauthorized()
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	auth    Authenticator
	metrics *Metrics
	log     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTP = h } }

// WithAuth attaches bearer tokens from a to every request.
func WithAuth(a Authenticator) Option { return func(c *Client) { c.auth = a } }

// WithMetrics records call outcomes.
func WithMetrics(m *Metrics) Option { return func(c *Client) { c.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(c *Client) { c.log = l } }

// New creates a client for baseURL. Deadlines come from each call, so the
// default http.Client has no global timeout.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		log:     logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithAuthenticator returns a shallow copy of c that authenticates with a.
func (c *Client) WithAuthenticator(a Authenticator) *Client {
	cp := *c
	cp.auth = a
	return &cp
}

type request struct {
	endpoint    string
	method      string
	path        string
	body        io.Reader
	contentType string
	timeout     time.Duration
	anonymous   bool
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	return bytes.NewReader(b), nil
}

// envelope is the common part of every backend response.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	started := time.Now()
	defer func() { c.metrics.observe(r.endpoint, started, err) }()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.BaseURL+r.path, r.body)
	if err != nil {
		return &Error{Kind: KindClient, Endpoint: r.endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	authed := false
	if c.auth != nil && !r.anonymous {
		if tok := c.auth.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
			authed = true
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Error{Kind: KindTimeout, Endpoint: r.endpoint, Message: "request timed out", Err: err}
		}
		return &Error{Kind: KindNetwork, Endpoint: r.endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Error{Kind: KindTimeout, Endpoint: r.endpoint, Message: "request timed out", Err: err}
		}
		return &Error{Kind: KindNetwork, Endpoint: r.endpoint, Err: err}
	}

	empty := len(bytes.TrimSpace(body)) == 0
	var env envelope
	var envErr error
	if !empty {
		envErr = json.Unmarshal(body, &env)
	}

	if resp.StatusCode >= 300 {
		e := &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Endpoint: r.endpoint, Message: env.text()}
		if envErr != nil && e.Message == "" {
			e.Message = strings.TrimSpace(string(body))
		}
		if e.Kind == KindUnauthorized && authed {
			c.log.WithField("endpoint", r.endpoint).Warn("backend rejected admin token")
			c.auth.Unauthorized()
		}
		return e
	}

	if empty {
		if out == nil {
			return nil
		}
		return &Error{Kind: KindMalformed, Status: resp.StatusCode, Endpoint: r.endpoint, Message: "empty response"}
	}
	if envErr != nil {
		return &Error{Kind: KindMalformed, Status: resp.StatusCode, Endpoint: r.endpoint, Message: "response is not JSON", Err: envErr}
	}
	if env.Success != nil && !*env.Success {
		return &Error{Kind: KindRejected, Status: resp.StatusCode, Endpoint: r.endpoint, Message: env.text()}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindMalformed, Status: resp.StatusCode, Endpoint: r.endpoint, Message: "unexpected response shape", Err: err}
	}
	return nil
}

func malformed(endpoint, msg string) error {
	return &Error{Kind: KindMalformed, Endpoint: endpoint, Message: msg}
}
