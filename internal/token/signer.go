package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// expiryGrace absorbs clock skew between issuance and verification.
const expiryGrace = 30 * time.Second

// Claims is the payload carried by a submission token. It is never
// persisted; the token itself is the only copy.
type Claims struct {
	ClientID  string `json:"clientId"`
	EmailHash string `json:"emailHash,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	ClientIP  string `json:"clientIp,omitempty"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"nonce"`
}

// Signer issues and verifies compact HMAC-SHA256 submission tokens of the
// form base64url(payload) + "." + base64url(mac).
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token signer secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be > 0")
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue stamps the claims with an expiry and a fresh nonce, then signs them.
func (s *Signer) Issue(claims Claims) (string, int64, error) {
	nonce, err := NewNonce()
	if err != nil {
		return "", 0, fmt.Errorf("generating nonce: %w", err)
	}

	claims.ExpiresAt = s.now().Add(s.ttl).Unix()
	claims.Nonce = nonce

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", 0, fmt.Errorf("encoding token payload: %w", err)
	}

	return s.sign(payload), claims.ExpiresAt, nil
}

// Verify returns the claims of a well-formed, authentic, unexpired token and
// nil for anything else. Callers cannot distinguish the failure modes, which
// is intentional.
func (s *Signer) Verify(token string) *Claims {
	message, sig, found := strings.Cut(token, ".")
	if !found {
		return nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(message)
	if err != nil {
		return nil
	}
	gotMAC, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil
	}

	// The MAC is recomputed over the decoded payload bytes, so no canonical
	// JSON serialization is needed on either side.
	if !hmac.Equal(gotMAC, s.mac(payload)) {
		return nil
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}

	if claims.ExpiresAt < s.now().Add(-expiryGrace).Unix() {
		return nil
	}

	return &claims
}

func (s *Signer) sign(payload []byte) string {
	return base64.RawURLEncoding.EncodeToString(payload) +
		"." +
		base64.RawURLEncoding.EncodeToString(s.mac(payload))
}

func (s *Signer) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil)
}

// NewNonce returns a 16-hex-char cryptographically random nonce.
func NewNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
