package gatewaytest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"
)

// KeyPair is a merchant or platform RSA key in the PEM forms the client accepts.
type KeyPair struct {
	Private *rsa.PrivateKey

	PKCS8PEM       string // "PRIVATE KEY"
	PKCS1PEM       string // "RSA PRIVATE KEY"
	PublicPEM      string // "PUBLIC KEY"
	PKCS1PublicPEM string // "RSA PUBLIC KEY"
	CertPEM        string // self-signed "CERTIFICATE"
	SerialNo       string
}

var (
	keysOnce sync.Once
	keys     [2]*KeyPair
	keysErr  error
)

// Keys returns two distinct 2048-bit key pairs, generated once per test binary.
func Keys(t testing.TB) (merchant, platform *KeyPair) {
	t.Helper()
	keysOnce.Do(func() {
		for i := range keys {
			if keys[i], keysErr = newKeyPair(int64(i + 1)); keysErr != nil {
				return
			}
		}
	})
	if keysErr != nil {
		t.Fatalf("generate test keys: %v", keysErr)
	}
	return keys[0], keys[1]
}

func newKeyPair(serial int64) (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	sn := big.NewInt(serial)
	tmpl := &x509.Certificate{
		SerialNumber: sn,
		Subject:      pkix.Name{CommonName: "wxpay test platform"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Private:        key,
		PKCS8PEM:       encode("PRIVATE KEY", pkcs8),
		PKCS1PEM:       encode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)),
		PublicPEM:      encode("PUBLIC KEY", spki),
		PKCS1PublicPEM: encode("RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(&key.PublicKey)),
		CertPEM:        encode("CERTIFICATE", der),
		SerialNo:       sn.Text(16),
	}, nil
}

func encode(typ string, der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}))
}
