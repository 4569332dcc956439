// Package plex is the upstream session layer: an HTTP client for the Plex
// Media Server (and plex.tv account) APIs plus a Provider that owns and
// refreshes the authenticated session.
package plex

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
	"strings"
	"time"
)

const logPrefix = "plex:client"

const (
	// DefaultTVURL is the plex.tv account API base.
	DefaultTVURL = "https://plex.tv"
	// Product is sent as X-Plex-Product on every request.
	Product = "plex-mcp-server"
	// maxBodyBytes bounds any single upstream response body.
	maxBodyBytes = 64 << 20
)

var (
	// ErrNotFound is wrapped by errors for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is wrapped by errors for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a non-2xx answer from Plex.
type Error struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: Plex returned %s", e.Op, e.Status)
}

// Unwrap maps status codes onto sentinel errors.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// BaseURL is the Plex Media Server URL, e.g. http://127.0.0.1:32400.
	BaseURL string
	Token   string
	// TVURL overrides the plex.tv base URL (tests).
	TVURL string
	// ClientIdentifier is sent as X-Plex-Client-Identifier.
	ClientIdentifier string
	// ConnectionTimeout bounds dialing and TLS handshakes. Per-request
	// deadlines come from the caller's context.
	ConnectionTimeout time.Duration
	// HTTPClient replaces the default transport when set.
	HTTPClient *http.Client
}

// Client talks to one Plex Media Server. It is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	tvURL    *url.URL
	token    string
	clientID string
	http     *http.Client

	// machineID is filled in by the Provider once /identity succeeds.
	machineID string
}

// NewClient validates opts and builds a Client. It performs no I/O.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid Plex URL: %w", logPrefix, err)
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("%s - Plex token is required", logPrefix)
	}
	tvRaw := opts.TVURL
	if tvRaw == "" {
		tvRaw = DefaultTVURL
	}
	tv, err := parseBaseURL(tvRaw)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid plex.tv URL: %w", logPrefix, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.ConnectionTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		transport.TLSHandshakeTimeout = timeout
		httpClient = &http.Client{Transport: transport}
	}

	clientID := opts.ClientIdentifier
	if clientID == "" {
		clientID = Product
	}

	return &Client{
		baseURL:  base,
		tvURL:    tv,
		token:    opts.Token,
		clientID: clientID,
		http:     httpClient,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// BaseURL returns the server URL without credentials.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// request is one upstream call.
type request struct {
	op          string
	method      string
	base        *url.URL
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func (c *Client) buildRequest(ctx context.Context, r request) (*http.Request, error) {
	u := *r.base
	u.Path = strings.TrimRight(u.Path, "/") + r.path
	if r.query != nil {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Product", Product)
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	return req, nil
}

// send performs r and returns the response body of a 2xx answer.
func (c *Client) send(ctx context.Context, r request) ([]byte, string, error) {
	req, err := c.buildRequest(ctx, r)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", r.op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", fmt.Errorf("%s: %w", r.op, ctxErr)
		}
		return nil, "", fmt.Errorf("%s: %w", r.op, redactURLError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%s: reading response: %w", r.op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &Error{Op: r.op, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// container performs r and decodes a MediaContainer.
func (c *Client) container(ctx context.Context, r request) (*MediaContainer, error) {
	data, _, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	mc, err := decodeContainer(data)
	if err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", r.op, err)
	}
	return mc, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) (*MediaContainer, error) {
	return c.container(ctx, request{op: op, method: http.MethodGet, base: c.baseURL, path: path, query: query})
}

func (c *Client) exec(ctx context.Context, op, method, path string, query url.Values) (*MediaContainer, error) {
	return c.container(ctx, request{op: op, method: method, base: c.baseURL, path: path, query: query})
}

// tvJSON performs a GET against plex.tv and decodes the JSON body into out.
func (c *Client) tvJSON(ctx context.Context, op, path string, out any) error {
	data, _, err := c.send(ctx, request{op: op, method: http.MethodGet, base: c.tvURL, path: path})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// Fetch downloads a server-relative resource (artwork, transcoded images).
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", path, err)
	}
	if u.IsAbs() {
		return nil, "", fmt.Errorf("fetch: only server-relative paths are allowed")
	}
	return c.send(ctx, request{op: "fetch " + u.Path, method: http.MethodGet, base: c.baseURL, path: u.Path, query: u.Query()})
}

// redactURLError strips the request URL from transport errors so query
// strings never reach callers.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func containerQuery(offset, limit int) url.Values {
	q := url.Values{}
	if offset > 0 || limit > 0 {
		q.Set("X-Plex-Container-Start", fmt.Sprint(offset))
	}
	if limit > 0 {
		q.Set("X-Plex-Container-Size", fmt.Sprint(limit))
	}
	return q
}
