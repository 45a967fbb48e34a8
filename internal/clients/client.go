// Package clients talks to the SH Drug backend REST API. Every domain API in
// this package goes through one Client, which attaches the bearer token from
// the session store, normalizes failures into *RequestError and applies a
// single policy to 401 answers.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"shdrug/client/internal/metrics"
	"shdrug/client/internal/session"
)

const (
	DefaultTimeout  = 10 * time.Second
	LoginPath       = "/login"
	RequestIDHeader = "X-Request-ID"
)

// Navigator moves the runtime to another client route.
type Navigator interface {
	Navigate(target string)
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Session session.Provider
	// Navigator receives the login redirect of the 401 policy. Optional.
	Navigator Navigator
	// OnUnauthorized replaces the default 401 policy.
	OnUnauthorized func(ctx context.Context)
	Transport      http.RoundTripper
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

type Client struct {
	baseURL        string
	http           *http.Client
	session        session.Provider
	onUnauthorized func(ctx context.Context)
	logger         *slog.Logger

	Auth          *AuthAPI
	Admin         *AdminAPI
	Announcements *AnnouncementsAPI
	Catalog       *CatalogAPI
	Circulation   *CirculationAPI
	Compliance    *ComplianceAPI
	Enterprise    *EnterpriseAPI
	Home          *HomeAPI
	Inventory     *InventoryAPI
	Logistics     *LogisticsAPI
	Nearby        *NearbyAPI
	Orders        *OrdersAPI
	Reminders     *RemindersAPI
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: opts.Metrics.InstrumentTransport(opts.Transport),
		},
		session: opts.Session,
		logger:  logger,
	}
	c.onUnauthorized = opts.OnUnauthorized
	if c.onUnauthorized == nil {
		c.onUnauthorized = ClearAndRedirect(opts.Session, opts.Navigator, logger)
	}

	c.Auth = &AuthAPI{c: c}
	c.Admin = &AdminAPI{c: c}
	c.Announcements = &AnnouncementsAPI{c: c}
	c.Catalog = &CatalogAPI{c: c}
	c.Circulation = &CirculationAPI{c: c}
	c.Compliance = &ComplianceAPI{c: c}
	c.Enterprise = &EnterpriseAPI{c: c}
	c.Home = &HomeAPI{c: c}
	c.Inventory = &InventoryAPI{c: c}
	c.Logistics = &LogisticsAPI{c: c}
	c.Nearby = &NearbyAPI{c: c}
	c.Orders = &OrdersAPI{c: c}
	c.Reminders = &RemindersAPI{c: c}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one backend call. Path is appended to the base URL.
type Request struct {
	Method    string
	Path      string
	Params    Params
	Body      any
	Multipart *Multipart
	// Token replaces the session token for this call only.
	Token string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do performs the call and returns the raw response on 2xx. Any other status
// yields a *RequestError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, req, messageFromJSON)
}

// JSON performs the call and decodes a 2xx body into out. An empty body
// leaves out untouched.
func (c *Client) JSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], resp.Body...)
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", methodOf(req), req.Path, err)
	}
	return nil
}

// Blob is a binary download such as a report export.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Blob performs the call expecting a binary body. Failures read the message
// from a JSON body first, then from the raw text.
func (c *Client) Blob(ctx context.Context, req Request) (*Blob, error) {
	resp, err := c.do(ctx, req, messageFromText)
	if err != nil {
		return nil, err
	}
	blob := &Blob{Data: resp.Body, ContentType: resp.Header.Get("Content-Type")}
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			blob.Filename = params["filename"]
		}
	}
	return blob, nil
}

func (c *Client) do(ctx context.Context, req Request, message func(status int, body []byte) string) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	requestID := httpReq.Header.Get(RequestIDHeader)

	res, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend request failed", "method", httpReq.Method, "path", req.Path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%s %s: %w", httpReq.Method, req.Path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", httpReq.Method, req.Path, err)
	}
	c.logger.Debug("backend request", "method", httpReq.Method, "path", req.Path, "status", res.StatusCode, "request_id", requestID)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		reqErr := &RequestError{
			Message: message(res.StatusCode, body),
			Status:  res.StatusCode,
			Method:  httpReq.Method,
			Path:    req.Path,
		}
		if res.StatusCode == http.StatusUnauthorized {
			c.onUnauthorized(ctx)
		}
		return nil, reqErr
	}
	return &Response{Status: res.StatusCode, Header: res.Header, Body: body}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if query := req.Params.Encode(); query != "" {
		target += "?" + query
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Multipart != nil:
		payload, ct, err := req.Multipart.encode()
		if err != nil {
			return nil, fmt.Errorf("encode multipart %s: %w", req.Path, err)
		}
		body, contentType = payload, ct
	case req.Body != nil:
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body %s: %w", req.Path, err)
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, methodOf(req), target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())

	token := req.Token
	if token == "" && c.session != nil {
		token = c.session.Token(ctx)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

func methodOf(req Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return req.Method
}
