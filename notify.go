package wxpay

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"wxpayv3/internal/aead"
	"wxpayv3/payerr"
)

// Callback headers.
const (
	HeaderSignature = "Wechatpay-Signature"
	HeaderTimestamp = "Wechatpay-Timestamp"
	HeaderNonce     = "Wechatpay-Nonce"
	HeaderSerial    = "Wechatpay-Serial"
)

// AlgorithmAESGCM is the only resource algorithm the gateway uses.
const AlgorithmAESGCM = "AEAD_AES_256_GCM"

// Notification is a callback envelope. Resource stays encrypted until
// ParseNotification decrypts it.
type Notification struct {
	ID           string            `json:"id"`
	CreateTime   string            `json:"create_time"`
	EventType    string            `json:"event_type"`
	ResourceType string            `json:"resource_type"`
	Summary      string            `json:"summary"`
	Resource     EncryptedResource `json:"resource"`

	// Serial is the platform certificate serial from the request headers.
	Serial string `json:"-"`
}

// ParseNotification authenticates a callback and decrypts its resource
// into out (for example *Transaction or *RefundNotice). body must be the
// raw request body exactly as received.
//
// The timestamp must fall within the notify window and the signature must
// verify before anything is decrypted. With a nonce store configured, a
// nonce seen before is rejected after the signature checks out.
func (c *Client) ParseNotification(ctx context.Context, header http.Header, body []byte, out any) (*Notification, error) {
	const op = "parse notification"

	signature := header.Get(HeaderSignature)
	timestamp := header.Get(HeaderTimestamp)
	nonce := header.Get(HeaderNonce)
	if signature == "" || timestamp == "" || nonce == "" {
		return nil, payerr.New(payerr.KindVerification, op, "missing signature headers")
	}

	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, payerr.Wrap(payerr.KindVerification, op, err)
	}
	if drift := c.now().Sub(time.Unix(sec, 0)).Abs(); c.window > 0 && drift > c.window {
		return nil, payerr.New(payerr.KindVerification, op, "timestamp outside window: "+drift.String())
	}

	ok, err := c.verifier.Verify(signature, timestamp, nonce, body)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, payerr.New(payerr.KindVerification, op, "signature mismatch")
	}

	if c.nonces != nil {
		fresh, err := c.nonces.Remember(ctx, nonce, c.nonceTTL())
		if err != nil {
			return nil, payerr.Wrap(payerr.KindVerification, op, err)
		}
		if !fresh {
			return nil, payerr.New(payerr.KindVerification, op, "nonce replayed")
		}
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, payerr.Wrap(payerr.KindPayloadFormat, op, err)
	}
	n.Serial = header.Get(HeaderSerial)

	r := n.Resource
	if r.Algorithm != AlgorithmAESGCM {
		return nil, payerr.New(payerr.KindDecryption, op, "unsupported algorithm "+strconv.Quote(r.Algorithm))
	}
	if out != nil {
		if err := aead.DecryptJSON(c.apiKey, r.Ciphertext, r.AssociatedData, r.Nonce, out); err != nil {
			return nil, err
		}
	}

	c.logOperation("notification", map[string]any{
		"id":         n.ID,
		"event_type": n.EventType,
		"serial":     n.Serial,
	})
	return &n, nil
}

// nonceTTL keeps a nonce for twice the window. A zero TTL never expires in
// Redis, so a disabled window falls back to the default.
func (c *Client) nonceTTL() time.Duration {
	if c.window <= 0 {
		return 2 * DefaultNotifyWindow
	}
	return 2 * c.window
}
