package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"

	"wxpayv3/payerr"
)

// Verifier checks callback signatures against the platform public key.
type Verifier struct {
	key *rsa.PublicKey
}

func NewVerifier(key *rsa.PublicKey) *Verifier {
	return &Verifier{key: key}
}

// Verify reports whether signature covers timestamp, nonce and body. A
// well-formed signature that does not match returns false with no error;
// a signature that is not base64, or a missing key, is a verification error.
func (v *Verifier) Verify(signature, timestamp, nonce string, body any) (bool, error) {
	if v == nil || v.key == nil {
		return false, payerr.New(payerr.KindVerification, "verify", "no public key configured")
	}

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, payerr.Wrap(payerr.KindVerification, "verify", err)
	}

	payload, err := BodyString(body)
	if err != nil {
		return false, payerr.Wrap(payerr.KindVerification, "verify", err)
	}

	digest := sha256.Sum256([]byte(Message(timestamp, nonce, payload)))
	return rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], raw) == nil, nil
}
