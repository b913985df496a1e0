// Package wxpay is a client for the WeChat Pay API v3.
//
// A Client signs every request with the merchant key, sends it once, and
// returns either the decoded response or a *payerr.Error. It also verifies
// and decrypts the callbacks the gateway sends back; receiving them over
// HTTP is left to the caller.
package wxpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wxpayv3/config"
	"wxpayv3/internal/aead"
	"wxpayv3/clock"
	"wxpayv3/internal/signer"
	"wxpayv3/internal/transport"
	"wxpayv3/payerr"
	"wxpayv3/replay"
)

// Client talks to the gateway on behalf of one merchant. It is safe for
// concurrent use; its configuration never changes after New.
type Client struct {
	cfg      config.Config
	apiKey   []byte
	http     *transport.HTTPClient
	signer   *signer.Signer
	verifier *signer.Verifier
	log      zerolog.Logger
	now      clock.Clock
	nonces   replay.Store
	window   time.Duration
}

type options struct {
	baseURL    string
	logger     *zerolog.Logger
	registerer prometheus.Registerer
	nonces     replay.Store
	now        clock.Clock
	window     time.Duration
}

// Option customises a Client.
type Option func(*options)

// WithBaseURL sends requests to another host instead of the production gateway.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithLogger replaces the default logger (the global zerolog logger).
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = &l } }

// WithMetrics registers request metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option { return func(o *options) { o.registerer = reg } }

// WithNonceStore rejects callbacks whose nonce was already seen.
func WithNonceStore(s replay.Store) Option { return func(o *options) { o.nonces = s } }

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithNotifyWindow sets how far a callback timestamp may drift from now.
// Zero or less disables the check.
func WithNotifyWindow(d time.Duration) Option { return func(o *options) { o.window = d } }

// DefaultNotifyWindow is the accepted callback timestamp drift.
const DefaultNotifyWindow = 5 * time.Minute

// New validates cfg, parses its keys and returns a ready Client.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	o := options{now: time.Now, window: DefaultNotifyWindow}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	privateKey, err := signer.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	publicKey, err := signer.ParsePublicKey(cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	logger := log.Logger.With().Str("component", "wxpay").Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	httpOpts := []transport.Option{transport.WithLogger(logger)}
	if o.baseURL != "" {
		httpOpts = append(httpOpts, transport.WithBaseURL(o.baseURL))
	}
	if o.registerer != nil {
		m, err := transport.NewMetrics(o.registerer)
		if err != nil {
			return nil, payerr.Wrap(payerr.KindConfig, "register metrics", err)
		}
		httpOpts = append(httpOpts, transport.WithMetrics(m))
	}

	return &Client{
		cfg:      cfg,
		apiKey:   []byte(cfg.APIv3Key),
		http:     transport.NewHTTPClient(httpOpts...),
		signer:   signer.New(cfg.MchID, cfg.SerialNo, privateKey, o.now, nil),
		verifier: signer.NewVerifier(publicKey),
		log:      logger,
		now:      o.now,
		nonces:   o.nonces,
		window:   o.window,
	}, nil
}

// Config returns a copy of the client's credential set.
func (c *Client) Config() config.Config { return c.cfg }

// Sign signs fields joined by newlines, each newline-terminated.
func (c *Client) Sign(fields ...string) (string, error) {
	return c.signer.Sign(fields...)
}

// Authorization builds the Authorization header for a request. path must
// include the query string. GET requests never sign the body.
func (c *Client) Authorization(method, path string, body any) (string, error) {
	return c.signer.Authorization(method, path, body)
}

// Verify checks a callback signature over timestamp, nonce and body. Pass
// the raw body bytes where possible; objects are re-encoded as JSON.
func (c *Client) Verify(signature, timestamp, nonce string, body any) (bool, error) {
	return c.verifier.Verify(signature, timestamp, nonce, body)
}

// DecryptResource decrypts a callback resource into a generic JSON object.
func (c *Client) DecryptResource(ciphertext, associatedData, nonce string) (map[string]any, error) {
	var out map[string]any
	if err := aead.DecryptJSON(c.apiKey, ciphertext, associatedData, nonce, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecryptResourceInto decrypts a callback resource into v.
func (c *Client) DecryptResourceInto(ciphertext, associatedData, nonce string, v any) error {
	return aead.DecryptJSON(c.apiKey, ciphertext, associatedData, nonce, v)
}

// call signs and sends one request. body is encoded once and those exact
// bytes are both signed and sent. out, when non-nil, receives the decoded
// response. The raw response body is always returned.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, out any) ([]byte, error) {
	uri := path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	var payload []byte
	if body != nil && method != http.MethodGet {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, payerr.Wrap(payerr.KindSigning, method+" "+uri, err)
		}
	}

	auth, err := c.signer.Authorization(method, uri, payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(ctx, method, uri, payload, map[string]string{"Authorization": auth})
	if err != nil {
		return nil, err
	}

	if out != nil && len(resp) > 0 {
		if err := json.Unmarshal(resp, out); err != nil {
			return nil, payerr.Wrap(payerr.KindPayloadFormat, method+" "+uri, err)
		}
	}
	return resp, nil
}

// logOperation records a completed gateway operation. Only identifiers go
// in details, never keys, signatures or bodies.
func (c *Client) logOperation(operation string, details map[string]any) {
	c.log.Info().
		Str("operation", operation).
		Fields(details).
		Msg("wxpay operation")
}
