// Package aead decrypts the AES-256-GCM resources carried by gateway
// callbacks and certificate listings.
//
// A resource ciphertext is base64(ciphertext || 16-byte tag), possibly
// percent-encoded. The nonce is the resource's nonce string used as raw
// bytes, and the associated data is its associated_data string.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"wxpayv3/payerr"
)

const (
	KeySize = 32
	TagSize = 16
)

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	if nonceSize == 0 {
		return nil, errors.New("empty nonce")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// Decrypt authenticates and decrypts a resource ciphertext. On any failure
// it returns a decryption error and no plaintext.
func Decrypt(key []byte, ciphertext, associatedData, nonce string) ([]byte, error) {
	const op = "decrypt resource"

	unescaped, err := url.PathUnescape(ciphertext)
	if err != nil {
		return nil, payerr.Wrap(payerr.KindDecryption, op, err)
	}
	data, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		return nil, payerr.Wrap(payerr.KindDecryption, op, err)
	}
	if len(data) < TagSize {
		return nil, payerr.New(payerr.KindDecryption, op, "ciphertext shorter than authentication tag")
	}

	gcm, err := newGCM(key, len(nonce))
	if err != nil {
		return nil, payerr.Wrap(payerr.KindDecryption, op, err)
	}

	// Open expects ciphertext||tag, which is exactly the decoded layout.
	plaintext, err := gcm.Open(nil, []byte(nonce), data, []byte(associatedData))
	if err != nil {
		return nil, payerr.Wrap(payerr.KindDecryption, op, err)
	}
	return plaintext, nil
}

// DecryptJSON decrypts a resource and unmarshals the JSON plaintext into v.
func DecryptJSON(key []byte, ciphertext, associatedData, nonce string, v any) error {
	plaintext, err := Decrypt(key, ciphertext, associatedData, nonce)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return payerr.Wrap(payerr.KindPayloadFormat, "decode resource", err)
	}
	return nil
}

// Encrypt is the inverse of Decrypt: it returns base64(ciphertext || tag).
func Encrypt(key, plaintext []byte, associatedData, nonce string) (string, error) {
	gcm, err := newGCM(key, len(nonce))
	if err != nil {
		return "", payerr.Wrap(payerr.KindConfig, "encrypt resource", err)
	}
	sealed := gcm.Seal(nil, []byte(nonce), plaintext, []byte(associatedData))
	return base64.StdEncoding.EncodeToString(sealed), nil
}
