package credential

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidToken is returned when a token is malformed or its signature
// does not verify.
var ErrInvalidToken = errors.New("invalid credential token")

// Signer mints and verifies opaque credential tokens.
//
// A token is base64url(registrationID) + "." + base64url(HMAC-SHA256(secret,
// registrationID)). Minting is deterministic so repeated issuance for the
// same registration yields the same token, and the MAC keeps the registration
// identifier from being forged into a scannable credential.
type Signer struct {
	secret []byte
}

// NewSigner constructs a Signer from the configured secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("credential secret missing")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Mint derives the credential token for a registration.
func (s *Signer) Mint(registrationID string) (string, error) {
	if registrationID == "" {
		return "", fmt.Errorf("registration id required")
	}
	id := base64.RawURLEncoding.EncodeToString([]byte(registrationID))
	sig := base64.RawURLEncoding.EncodeToString(s.sign(registrationID))
	return id + "." + sig, nil
}

// Parse verifies a scanned token and returns the registration ID it names.
func (s *Signer) Parse(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", ErrInvalidToken
	}
	rawID, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidToken
	}
	if !hmac.Equal(sig, s.sign(string(rawID))) {
		return "", ErrInvalidToken
	}
	return string(rawID), nil
}

func (s *Signer) sign(registrationID string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(registrationID))
	return mac.Sum(nil)
}
