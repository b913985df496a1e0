// Package gatewaytest runs a fake payment gateway for tests. Every request
// must carry a valid merchant Authorization header; the gateway checks it
// with its own parser and the merchant public key, then records it.
package gatewaytest

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const scheme = "WECHATPAY2-SHA256-RSA2048"

// Auth is a parsed Authorization header.
type Auth struct {
	MchID     string
	Nonce     string
	Signature string
	Timestamp string
	SerialNo  string
}

// Request is one request the gateway accepted.
type Request struct {
	Method string
	URI    string // path plus raw query, as signed
	Header http.Header
	Body   []byte
	Auth   Auth
}

// Gateway is an httptest server speaking the gateway's auth protocol.
type Gateway struct {
	*httptest.Server

	t        testing.TB
	router   chi.Router
	merchant *rsa.PublicKey
	mchID    string

	mu       sync.Mutex
	requests []Request
}

// New starts a gateway that accepts requests signed by merchant for mchID.
// The server is closed when the test ends.
func New(t testing.TB, merchant *rsa.PublicKey, mchID string) *Gateway {
	t.Helper()
	g := &Gateway{t: t, merchant: merchant, mchID: mchID}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(g.authenticate)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND", "message": r.URL.Path})
	})
	g.router = r
	g.Server = httptest.NewServer(r)
	t.Cleanup(g.Server.Close)
	return g
}

// Handle routes method+pattern (chi syntax) to h.
func (g *Gateway) Handle(method, pattern string, h http.HandlerFunc) {
	g.router.MethodFunc(method, pattern, h)
}

// Reply answers method+pattern with a fixed status and body. body may be
// nil, a string or []byte sent verbatim, or a value encoded as JSON.
func (g *Gateway) Reply(method, pattern string, status int, body any) {
	g.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		switch b := body.(type) {
		case nil:
			w.WriteHeader(status)
		case string:
			w.WriteHeader(status)
			_, _ = io.WriteString(w, b)
		case []byte:
			w.WriteHeader(status)
			_, _ = w.Write(b)
		default:
			writeJSON(w, status, b)
		}
	})
}

// Requests returns a copy of every authenticated request so far.
func (g *Gateway) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

// Last returns the most recent authenticated request.
func (g *Gateway) Last() Request {
	g.t.Helper()
	reqs := g.Requests()
	if len(reqs) == 0 {
		g.t.Fatal("gatewaytest: no requests recorded")
	}
	return reqs[len(reqs)-1]
}

// DecodeBody unmarshals the JSON body of req into a generic map.
func DecodeBody(t testing.TB, req Request) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(req.Body, &m); err != nil {
		t.Fatalf("gatewaytest: decode body %q: %v", req.Body, err)
	}
	return m
}

func (g *Gateway) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		auth, err := ParseAuthorization(r.Header.Get("Authorization"))
		if err == nil {
			err = g.check(r.Method, r.URL.RequestURI(), auth, body)
		}
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "SIGN_ERROR", "message": err.Error()})
			return
		}

		g.mu.Lock()
		g.requests = append(g.requests, Request{
			Method: r.Method,
			URI:    r.URL.RequestURI(),
			Header: r.Header.Clone(),
			Body:   body,
			Auth:   auth,
		})
		g.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) check(method, uri string, auth Auth, body []byte) error {
	if auth.MchID != g.mchID {
		return fmt.Errorf("mchid %q does not match", auth.MchID)
	}
	if len(auth.Nonce) != 32 {
		return fmt.Errorf("nonce_str must be 32 characters, got %d", len(auth.Nonce))
	}
	sig, err := base64.StdEncoding.DecodeString(auth.Signature)
	if err != nil {
		return fmt.Errorf("signature is not base64: %w", err)
	}
	msg := method + "\n" + uri + "\n" + auth.Timestamp + "\n" + auth.Nonce + "\n" + string(body) + "\n"
	digest := sha256.Sum256([]byte(msg))
	if err := rsa.VerifyPKCS1v15(g.merchant, crypto.SHA256, digest[:], sig); err != nil {
		return errors.New("signature does not match request")
	}
	return nil
}

// ParseAuthorization splits a header into its five fields. The field order
// must be mchid, nonce_str, signature, timestamp, serial_no.
func ParseAuthorization(header string) (Auth, error) {
	rest, ok := strings.CutPrefix(header, scheme+" ")
	if !ok {
		return Auth{}, errors.New("missing " + scheme + " scheme")
	}

	order := []string{"mchid", "nonce_str", "signature", "timestamp", "serial_no"}
	parts := strings.Split(rest, ",")
	if len(parts) != len(order) {
		return Auth{}, fmt.Errorf("expected %d fields, got %d", len(order), len(parts))
	}

	values := make([]string, len(order))
	for i, part := range parts {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k != order[i] {
			return Auth{}, fmt.Errorf("field %d: expected %s", i, order[i])
		}
		if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
			return Auth{}, fmt.Errorf("field %s is not quoted", k)
		}
		values[i] = v[1 : len(v)-1]
	}

	return Auth{
		MchID:     values[0],
		Nonce:     values[1],
		Signature: values[2],
		Timestamp: values[3],
		SerialNo:  values[4],
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
