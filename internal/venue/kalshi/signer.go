package kalshi

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

// Signed request headers
const (
	HeaderAccessKey       = "KALSHI-ACCESS-KEY"
	HeaderAccessTimestamp = "KALSHI-ACCESS-TIMESTAMP"
	HeaderAccessSignature = "KALSHI-ACCESS-SIGNATURE"
)

// Signer produces authentication headers for a request. path is the full
// URL path without the query string.
type Signer interface {
	Sign(method, path string) (http.Header, error)
}

// RSASigner signs requests with RSA-PSS over SHA-256
type RSASigner struct {
	keyID string
	key   *rsa.PrivateKey
	now   func() time.Time
}

// NewRSASigner creates a signer for an API key id and its private key
func NewRSASigner(keyID string, key *rsa.PrivateKey) (*RSASigner, error) {
	if keyID == "" {
		return nil, errors.New("API key ID is required")
	}
	if key == nil {
		return nil, errors.New("private key is required")
	}
	return &RSASigner{keyID: keyID, key: key, now: time.Now}, nil
}

// Sign signs timestamp_ms + method + path
func (s *RSASigner) Sign(method, path string) (http.Header, error) {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)

	hashed := sha256.Sum256([]byte(ts + method + path))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, hashed[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	h := make(http.Header, 3)
	h.Set(HeaderAccessKey, s.keyID)
	h.Set(HeaderAccessTimestamp, ts)
	h.Set(HeaderAccessSignature, base64.StdEncoding.EncodeToString(sig))
	return h, nil
}

// LoadPrivateKey reads an RSA private key from a PEM file
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey decodes a PKCS#8 or PKCS#1 PEM-encoded RSA key
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
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
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return rsaKey, nil
}
