package wxpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxpayv3/internal/aead"
	"wxpayv3/internal/gatewaytest"
	"wxpayv3/internal/signer"
	"wxpayv3/payerr"
)

type memoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Duration
	err  error
}

func (m *memoryStore) Remember(_ context.Context, nonce string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = map[string]time.Duration{}
	}
	if _, ok := m.seen[nonce]; ok {
		return false, nil
	}
	m.seen[nonce] = ttl
	return true, nil
}

const notifyNonce = "fdasflkja484w"

// signedNotification builds a payment callback the way the gateway sends
// it: encrypted resource, platform signature over the raw body.
func signedNotification(t *testing.T, ts int64, plaintext string) (http.Header, []byte) {
	t.Helper()
	_, platform := gatewaytest.Keys(t)

	ct, err := aead.Encrypt([]byte(testAPIKey), []byte(plaintext), "transaction", "fdasfwqewlkja484w")
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"id":            "EV-2018022511223320873",
		"create_time":   "2015-05-20T13:29:35+08:00",
		"resource_type": "encrypt-resource",
		"event_type":    "TRANSACTION.SUCCESS",
		"summary":       "payment succeeded",
		"resource": map[string]string{
			"algorithm":       AlgorithmAESGCM,
			"ciphertext":      ct,
			"associated_data": "transaction",
			"original_type":   "transaction",
			"nonce":           "fdasfwqewlkja484w",
		},
	})
	require.NoError(t, err)

	timestamp := strconv.FormatInt(ts, 10)
	sig, err := signer.New("", "", platform.Private, nil, nil).Sign(timestamp, notifyNonce, string(body))
	require.NoError(t, err)

	h := http.Header{}
	h.Set(HeaderSignature, sig)
	h.Set(HeaderTimestamp, timestamp)
	h.Set(HeaderNonce, notifyNonce)
	h.Set(HeaderSerial, platform.SerialNo)
	return h, body
}

const paidTransaction = `{"mchid":"1900000001","appid":"wx-default","out_trade_no":"T1","transaction_id":"4200000001","trade_state":"SUCCESS","payer":{"openid":"o1"},"amount":{"total":100,"payer_total":100,"currency":"CNY"}}`

func TestParseNotification(t *testing.T) {
	c, _ := newTestClient(t, testConfig(t))
	h, body := signedNotification(t, testNow-30, paidTransaction)

	var tx Transaction
	n, err := c.ParseNotification(context.Background(), h, body, &tx)
	require.NoError(t, err)
	assert.Equal(t, "TRANSACTION.SUCCESS", n.EventType)
	assert.Equal(t, h.Get(HeaderSerial), n.Serial)
	assert.Equal(t, "T1", tx.OutTradeNo)
	assert.Equal(t, TradeStateSuccess, tx.TradeState)
	assert.Equal(t, int64(100), tx.Amount.Total)
}

func TestParseNotificationRejectsTampering(t *testing.T) {
	c, _ := newTestClient(t, testConfig(t))
	h, body := signedNotification(t, testNow, paidTransaction)

	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = ' '
	_, err := c.ParseNotification(context.Background(), h, tampered, nil)
	assert.True(t, errors.Is(err, payerr.ErrVerification))

	h2 := h.Clone()
	h2.Set(HeaderNonce, "other")
	_, err = c.ParseNotification(context.Background(), h2, body, nil)
	assert.True(t, errors.Is(err, payerr.ErrVerification))
}

func TestParseNotificationMissingHeaders(t *testing.T) {
	c, _ := newTestClient(t, testConfig(t))
	h, body := signedNotification(t, testNow, paidTransaction)
	h.Del(HeaderSignature)

	_, err := c.ParseNotification(context.Background(), h, body, nil)
	assert.True(t, errors.Is(err, payerr.ErrVerification))
}

func TestParseNotificationWindow(t *testing.T) {
	c, _ := newTestClient(t, testConfig(t))

	for _, ts := range []int64{testNow - 301, testNow + 301} {
		h, body := signedNotification(t, ts, paidTransaction)
		_, err := c.ParseNotification(context.Background(), h, body, nil)
		assert.True(t, errors.Is(err, payerr.ErrVerification), "ts %d", ts)
		assert.Contains(t, err.Error(), "window")
	}

	wide, _ := newTestClient(t, testConfig(t), WithNotifyWindow(time.Hour))
	h, body := signedNotification(t, testNow-600, paidTransaction)
	_, err := wide.ParseNotification(context.Background(), h, body, nil)
	assert.NoError(t, err)
}

func TestParseNotificationReplay(t *testing.T) {
	store := &memoryStore{}
	c, _ := newTestClient(t, testConfig(t), WithNonceStore(store))
	h, body := signedNotification(t, testNow, paidTransaction)

	_, err := c.ParseNotification(context.Background(), h, body, nil)
	require.NoError(t, err)
	assert.Equal(t, 2*DefaultNotifyWindow, store.seen[notifyNonce])

	_, err = c.ParseNotification(context.Background(), h, body, nil)
	assert.True(t, errors.Is(err, payerr.ErrVerification))
	assert.Contains(t, err.Error(), "replayed")
}

func TestParseNotificationForgeryDoesNotConsumeNonce(t *testing.T) {
	store := &memoryStore{}
	c, _ := newTestClient(t, testConfig(t), WithNonceStore(store))
	h, body := signedNotification(t, testNow, paidTransaction)

	forged := h.Clone()
	forged.Set(HeaderSignature, h.Get(HeaderSignature)[4:]+"AAAA")
	_, err := c.ParseNotification(context.Background(), forged, body, nil)
	require.Error(t, err)
	assert.Empty(t, store.seen)

	_, err = c.ParseNotification(context.Background(), h, body, nil)
	assert.NoError(t, err)
}

func TestParseNotificationStoreFailure(t *testing.T) {
	c, _ := newTestClient(t, testConfig(t), WithNonceStore(&memoryStore{err: errors.New("redis down")}))
	h, body := signedNotification(t, testNow, paidTransaction)

	_, err := c.ParseNotification(context.Background(), h, body, nil)
	assert.True(t, errors.Is(err, payerr.ErrVerification))
	assert.Contains(t, err.Error(), "redis down")
}

func TestParseNotificationBadResource(t *testing.T) {
	c, _ := newTestClient(t, testConfig(t))
	h, body := signedNotification(t, testNow, "not json")

	var tx Transaction
	_, err := c.ParseNotification(context.Background(), h, body, &tx)
	assert.True(t, errors.Is(err, payerr.ErrPayloadFormat))
}

func TestParseNotificationReplayWithoutWindow(t *testing.T) {
	store := &memoryStore{}
	c, _ := newTestClient(t, testConfig(t), WithNonceStore(store), WithNotifyWindow(0))
	h, body := signedNotification(t, testNow-3600, paidTransaction)

	_, err := c.ParseNotification(context.Background(), h, body, nil)
	require.NoError(t, err)
	assert.Equal(t, 2*DefaultNotifyWindow, store.seen[notifyNonce])
	assert.Greater(t, store.seen[notifyNonce], time.Duration(0))

	_, err = c.ParseNotification(context.Background(), h, body, nil)
	assert.True(t, errors.Is(err, payerr.ErrVerification))
}
