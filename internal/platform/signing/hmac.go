// Package signing produces tamper-evident tokens with HMAC-SHA256.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidToken is returned by Open for malformed or forged tokens.
var ErrInvalidToken = errors.New("invalid signed token")

type Signer struct {
	Secret []byte
}

func New(secret string) *Signer {
	return &Signer{Secret: []byte(secret)}
}

// Sign returns the base64url HMAC of payload.
func (s *Signer) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(payload []byte, sig string) bool {
	return hmac.Equal([]byte(sig), []byte(s.Sign(payload)))
}

// Seal encodes payload as "<base64url(payload)>.<sig>".
func (s *Signer) Seal(payload []byte) string {
	return base64.RawURLEncoding.EncodeToString(payload) + "." + s.Sign(payload)
}

// Open reverses Seal and returns the payload if the signature matches.
func (s *Signer) Open(token string) ([]byte, error) {
	body, sig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || body == "" || sig == "" {
		return nil, ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.Verify(payload, sig) {
		return nil, ErrInvalidToken
	}
	return payload, nil
}
