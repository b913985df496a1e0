package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxpayv3/payerr"
)

func TestDoSendsBodyAndHeaders(t *testing.T) {
	var (
		gotMethod, gotPath, gotQuery, gotAuth, gotCT string
		gotBody                                      []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"prepay_id":"wx123"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(WithBaseURL(srv.URL))
	out, err := c.Post(context.Background(), "/v3/pay/transactions/jsapi?x=1", []byte(`{"a":1}`), map[string]string{"Authorization": "token"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"prepay_id":"wx123"}`, string(out))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v3/pay/transactions/jsapi", gotPath)
	assert.Equal(t, "x=1", gotQuery)
	assert.Equal(t, "token", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, `{"a":1}`, string(gotBody))
}

func TestMethods(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method)
		if r.Method == http.MethodGet || r.Method == http.MethodDelete {
			assert.Empty(t, r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewHTTPClient(WithBaseURL(srv.URL))

	_, err := c.Get(ctx, "/g", nil)
	require.NoError(t, err)
	_, err = c.Put(ctx, "/p", []byte(`{}`), nil)
	require.NoError(t, err)
	_, err = c.Delete(ctx, "/d", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{http.MethodGet, http.MethodPut, http.MethodDelete}, seen)
}

func TestNon2xxSurfacesGatewayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"PARAM_ERROR","message":"out_trade_no invalid"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(WithBaseURL(srv.URL)).Get(context.Background(), "/v3/x", nil)
	require.Error(t, err)

	var e *payerr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, payerr.KindTransport, e.Kind)
	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
	assert.Equal(t, "PARAM_ERROR", e.Code)
	assert.Equal(t, "out_trade_no invalid", e.Message)
	assert.JSONEq(t, `{"code":"PARAM_ERROR","message":"out_trade_no invalid"}`, string(e.Body))
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.False(t, errors.Is(err, payerr.ErrNetwork))
}

func TestNon2xxPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(WithBaseURL(srv.URL)).Get(context.Background(), "/", nil)

	var e *payerr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusBadGateway, e.StatusCode)
	assert.Equal(t, "upstream down\n", e.Message)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(WithBaseURL(url)).Get(context.Background(), "/v3/certificates", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, payerr.ErrNetwork))
	assert.True(t, errors.Is(err, payerr.ErrTransport))
}

func TestCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(WithBaseURL(srv.URL)).Get(ctx, "/", nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, payerr.KindNetwork, payerr.KindOf(err))
}

func TestMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	c := NewHTTPClient(WithBaseURL(srv.URL), WithMetrics(m))
	ctx := context.Background()
	_, _ = c.Get(ctx, "/ok", nil)
	_, _ = c.Get(ctx, "/ok", nil)
	_, _ = c.Get(ctx, "/bad", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests().WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests().WithLabelValues("GET", "404")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestDefaults(t *testing.T) {
	c := NewHTTPClient()
	assert.Equal(t, BaseURL, c.BaseURL())
	assert.Equal(t, Timeout, c.client.Timeout)
}
