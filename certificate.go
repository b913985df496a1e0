package wxpay

import (
	"context"
	"net/http"

	"wxpayv3/internal/aead"
)

// Certificates lists the platform certificates. Nothing is cached and no
// rotation is attempted; the certificates come back encrypted.
func (c *Client) Certificates(ctx context.Context) (*CertificateList, error) {
	var out CertificateList
	if _, err := c.call(ctx, http.MethodGet, "/v3/certificates", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecryptCertificate returns the PEM text of a listed platform certificate.
func (c *Client) DecryptCertificate(cert Certificate) (string, error) {
	r := cert.EncryptCertificate
	pem, err := aead.Decrypt(c.apiKey, r.Ciphertext, r.AssociatedData, r.Nonce)
	if err != nil {
		return "", err
	}
	return string(pem), nil
}
