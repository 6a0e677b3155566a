// Package signing implements the HMAC helper behind expiring artifact
// download URLs.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Signer generates and validates HMAC signatures over artifact keys.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the hex signature binding an artifact key to an expiry.
func (s *Signer) Sign(artifactKey string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	// The canonical payload fixes field ordering so signatures are stable.
	payload := fmt.Sprintf("%s:%d", artifactKey, expiresUnix)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate compares the provided signature with the expected one.
func (s *Signer) Validate(artifactKey, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	expected := s.Sign(artifactKey, exp)
	// hmac.Equal performs constant-time comparison to avoid timing attacks.
	return hmac.Equal([]byte(expected), []byte(signature))
}
