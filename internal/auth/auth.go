// Package auth signs upstream gateway requests with RSA-PSS.
//
// Each signed request carries three headers: the key ID, a millisecond
// timestamp and a base64 signature over timestamp + method + path.
package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Header names set by Sign.
const (
	HeaderKeyID     = "X-Access-Key"
	HeaderTimestamp = "X-Access-Timestamp"
	HeaderSignature = "X-Access-Signature"
)

// Credentials holds the key ID and private key used for signing.
type Credentials struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey

	now func() time.Time
}

// LoadCredentials loads credentials from a key ID and a PEM file.
func LoadCredentials(keyID, privateKeyPath string) (*Credentials, error) {
	if keyID == "" {
		return nil, errors.New("key ID is required")
	}
	if privateKeyPath == "" {
		return nil, errors.New("private key path is required")
	}

	key, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	return &Credentials{KeyID: keyID, PrivateKey: key}, nil
}

// LoadPrivateKey reads a PKCS#8 or PKCS#1 RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("key is not an RSA private key")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return rsaKey, nil
}

// Sign sets the authentication headers on req. Only the URL path is
// signed; the query string is not.
func (c *Credentials) Sign(req *http.Request) error {
	headers, err := c.Headers(req.Method, req.URL.Path)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return nil
}

// Headers returns the authentication headers for method and path.
func (c *Credentials) Headers(method, path string) (map[string]string, error) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	ts := now().UnixMilli()

	sig, err := c.signature(ts, method, path)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		HeaderKeyID:     c.KeyID,
		HeaderTimestamp: strconv.FormatInt(ts, 10),
		HeaderSignature: sig,
	}, nil
}

func (c *Credentials) signature(ts int64, method, path string) (string, error) {
	hashed := sha256.Sum256(message(ts, method, path))

	sig, err := rsa.SignPSS(rand.Reader, c.PrivateKey, crypto.SHA256, hashed[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// message is the signed payload: timestamp_ms + method + path.
func message(ts int64, method, path string) []byte {
	return []byte(strconv.FormatInt(ts, 10) + method + path)
}
