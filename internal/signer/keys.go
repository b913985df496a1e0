package signer

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"wxpayv3/payerr"
)

// ParsePrivateKey reads an RSA private key in PKCS#8 ("PRIVATE KEY") or
// PKCS#1 ("RSA PRIVATE KEY") PEM form.
func ParsePrivateKey(pemText string) (*rsa.PrivateKey, error) {
	block, err := decodePEM(pemText)
	if err != nil {
		return nil, payerr.Wrap(payerr.KindSigning, "parse private key", err)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, payerr.Wrap(payerr.KindSigning, "parse private key", err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, payerr.Wrap(payerr.KindSigning, "parse private key", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, payerr.New(payerr.KindSigning, "parse private key", fmt.Sprintf("expected RSA key, got %T", key))
		}
		return rsaKey, nil
	default:
		return nil, payerr.New(payerr.KindSigning, "parse private key", "unsupported PEM block "+block.Type)
	}
}

// ParsePublicKey reads an RSA public key from a PKIX ("PUBLIC KEY"),
// PKCS#1 ("RSA PUBLIC KEY") or X.509 platform certificate PEM.
func ParsePublicKey(pemText string) (*rsa.PublicKey, error) {
	block, err := decodePEM(pemText)
	if err != nil {
		return nil, payerr.Wrap(payerr.KindVerification, "parse public key", err)
	}

	var key any
	switch block.Type {
	case "PUBLIC KEY":
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			key = cert.PublicKey
		}
	default:
		return nil, payerr.New(payerr.KindVerification, "parse public key", "unsupported PEM block "+block.Type)
	}
	if err != nil {
		return nil, payerr.Wrap(payerr.KindVerification, "parse public key", err)
	}

	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, payerr.New(payerr.KindVerification, "parse public key", fmt.Sprintf("expected RSA key, got %T", key))
	}
	return rsaKey, nil
}

func decodePEM(text string) (*pem.Block, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty PEM")
	}
	block, _ := pem.Decode([]byte(text))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	return block, nil
}
