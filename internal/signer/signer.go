// Package signer implements the gateway's request signing and callback
// verification.
//
// Outbound requests sign five newline-terminated fields:
//
//	METHOD\nPATH\nTIMESTAMP\nNONCE\nBODY\n
//
// Inbound callbacks are verified over three:
//
//	TIMESTAMP\nNONCE\nBODY\n
//
// Both use RSA PKCS#1 v1.5 over SHA-256 with base64 signatures.
package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wxpayv3/clock"
	"wxpayv3/random"
	"wxpayv3/payerr"
)

// Scheme is the authentication scheme literal that prefixes every header.
const Scheme = "WECHATPAY2-SHA256-RSA2048"

// Message joins fields into the string-to-sign: every field is followed by
// exactly one newline.
func Message(fields ...string) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	return b.String()
}

// Signer holds the merchant's signing identity.
type Signer struct {
	mchID    string
	serialNo string
	key      *rsa.PrivateKey
	now      clock.Clock
	nonce    func() string
}

// New creates a Signer. now and nonce may be nil for the real clock and a
// 32-character random nonce.
func New(mchID, serialNo string, key *rsa.PrivateKey, now clock.Clock, nonce func() string) *Signer {
	if now == nil {
		now = time.Now
	}
	if nonce == nil {
		nonce = random.Nonce
	}
	return &Signer{mchID: mchID, serialNo: serialNo, key: key, now: now, nonce: nonce}
}

// Sign signs the newline-terminated concatenation of fields, in order.
func (s *Signer) Sign(fields ...string) (string, error) {
	if s.key == nil {
		return "", payerr.New(payerr.KindSigning, "sign", "no private key configured")
	}
	digest := sha256.Sum256([]byte(Message(fields...)))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", payerr.Wrap(payerr.KindSigning, "sign", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Authorization builds the Authorization header value for one request.
// path includes the query string. GET requests always sign an empty body.
func (s *Signer) Authorization(method, path string, body any) (string, error) {
	if method == "" {
		method = http.MethodGet
	}

	payload := ""
	if method != http.MethodGet {
		var err error
		if payload, err = BodyString(body); err != nil {
			return "", payerr.Wrap(payerr.KindSigning, "authorization", err)
		}
	}

	timestamp := clock.Timestamp10(s.now())
	nonce := s.nonce()

	signature, err := s.Sign(method, path, timestamp, nonce, payload)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`%s mchid="%s",nonce_str="%s",signature="%s",timestamp="%s",serial_no="%s"`,
		Scheme, s.mchID, nonce, signature, timestamp, s.serialNo), nil
}

// BodyString renders a request or callback body for signing. Strings and
// byte slices are used as-is, nil is empty, anything else is JSON encoded.
func BodyString(body any) (string, error) {
	switch b := body.(type) {
	case nil:
		return "", nil
	case string:
		return b, nil
	case []byte:
		return string(b), nil
	case json.RawMessage:
		return string(b), nil
	default:
		out, err := json.Marshal(b)
		if err != nil {
			return "", fmt.Errorf("unsupported body %T: %w", body, err)
		}
		return string(out), nil
	}
}
