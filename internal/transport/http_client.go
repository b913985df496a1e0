package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"wxpayv3/payerr"
)

const (
	// BaseURL is the gateway host every path is resolved against.
	BaseURL = "https://api.mch.weixin.qq.com"
	// Timeout bounds each request, including reading the response body.
	Timeout   = 6 * time.Second
	userAgent = "wxpayv3-go"
)

// HTTPClient sends requests to the gateway. One attempt per call, no retries.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
	metrics *Metrics
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option { return func(c *HTTPClient) { c.baseURL = u } }

func WithLogger(l zerolog.Logger) Option { return func(c *HTTPClient) { c.log = l } }

func WithMetrics(m *Metrics) Option { return func(c *HTTPClient) { c.metrics = m } }

// NewHTTPClient creates a client with the fixed base URL and timeout.
func NewHTTPClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		client:  &http.Client{Timeout: Timeout},
		baseURL: BaseURL,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the host requests are sent to.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

func (c *HTTPClient) Get(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, nil, headers)
}

func (c *HTTPClient) Post(ctx context.Context, path string, body []byte, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, body, headers)
}

func (c *HTTPClient) Put(ctx context.Context, path string, body []byte, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodPut, path, body, headers)
}

func (c *HTTPClient) Delete(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, headers)
}

// Do sends body exactly as given, so the bytes on the wire are the bytes
// that were signed. A nil body sends no Content-Type.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	op := method + " " + path
	url := c.baseURL + path

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, payerr.Wrap(payerr.KindNetwork, op, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	c.log.Debug().
		Str("method", method).
		Str("url", url).
		Msg("making HTTP request")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.observe(method, "error", time.Since(start))
		c.log.Error().
			Str("method", method).
			Str("url", url).
			Err(err).
			Msg("HTTP request failed")
		return nil, payerr.Wrap(payerr.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.observe(method, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, payerr.Wrap(payerr.KindNetwork, op, fmt.Errorf("failed to read response body: %w", err))
	}

	c.log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status_code", resp.StatusCode).
		Int("body_length", len(respBody)).
		Msg("received HTTP response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, resp.StatusCode, respBody)
	}
	return respBody, nil
}

// statusError keeps the gateway's error body intact and lifts its code and
// message when the body is the usual {"code","message"} object.
func statusError(op string, status int, body []byte) error {
	e := &payerr.Error{
		Kind:       payerr.KindTransport,
		Op:         op,
		StatusCode: status,
		Body:       body,
	}
	var gw struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &gw); err == nil {
		e.Code = gw.Code
		e.Message = gw.Message
	} else if len(body) > 0 {
		e.Message = string(body)
	} else {
		e.Message = http.StatusText(status)
	}
	return e
}

// IsStatus reports whether err is a gateway response with the given status.
func IsStatus(err error, status int) bool {
	var e *payerr.Error
	return errors.As(err, &e) && e.Kind == payerr.KindTransport && e.StatusCode == status
}
