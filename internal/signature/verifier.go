// Package signature authenticates payment provider webhook deliveries.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrMissingSecret    = errors.New("webhook secret is not configured")
	ErrMissingSignature = errors.New("signature header is missing")
	ErrMalformed        = errors.New("signature is not valid hex")
	ErrMismatch         = errors.New("signature does not match payload")
)

// Verifier checks HMAC-SHA256 signatures computed over the raw request body
// with the secret shared with the payment provider.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify accepts body only when signature equals Sign(body). The body must be
// the exact bytes received; re-encoded JSON will not verify.
func (v *Verifier) Verify(body []byte, signature string) error {
	if len(v.secret) == 0 {
		return ErrMissingSecret
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	given, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return ErrMalformed
	}

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), given) {
		return ErrMismatch
	}
	return nil
}
