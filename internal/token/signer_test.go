package token

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestSigner(t *testing.T) *Signer {
	t.Helper()

	signer, err := NewSigner(testSecret, 2*time.Hour)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	return signer
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("", time.Hour); err == nil {
		t.Fatal("NewSigner(\"\") error = nil, want error")
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	signer := newTestSigner(t)

	issued, exp, err := signer.Issue(Claims{
		ClientID:  "dev1",
		EmailHash: "abc123",
		UserAgent: "test-agent",
		ClientIP:  "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	wantExp := time.Now().Add(2 * time.Hour).Unix()
	if exp < wantExp-2 || exp > wantExp+2 {
		t.Fatalf("exp = %d, want ~%d", exp, wantExp)
	}

	claims := signer.Verify(issued)
	if claims == nil {
		t.Fatal("Verify() = nil, want claims")
	}
	if claims.ClientID != "dev1" || claims.EmailHash != "abc123" {
		t.Fatalf("claims = %+v, want original fields", claims)
	}
	if claims.UserAgent != "test-agent" || claims.ClientIP != "203.0.113.9" {
		t.Fatalf("claims binding fields = %+v, want original fields", claims)
	}
	if claims.ExpiresAt != exp {
		t.Fatalf("claims.ExpiresAt = %d, want %d", claims.ExpiresAt, exp)
	}
	if len(claims.Nonce) != 16 {
		t.Fatalf("nonce length = %d, want 16", len(claims.Nonce))
	}
}

func TestIssueUsesFreshNonces(t *testing.T) {
	signer := newTestSigner(t)

	first, _, err := signer.Issue(Claims{ClientID: "dev1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	second, _, err := signer.Issue(Claims{ClientID: "dev1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if signer.Verify(first).Nonce == signer.Verify(second).Nonce {
		t.Fatal("two issued tokens share a nonce")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	signer := newTestSigner(t)

	issued, _, err := signer.Issue(Claims{ClientID: "dev1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	dot := strings.IndexByte(issued, '.')
	sig := []byte(issued[dot+1:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := issued[:dot+1] + string(sig)

	if claims := signer.Verify(tampered); claims != nil {
		t.Fatalf("Verify(tampered) = %+v, want nil", claims)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	signer := newTestSigner(t)

	issued, _, err := signer.Issue(Claims{ClientID: "dev1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	forged, _, err := signer.Issue(Claims{ClientID: "attacker"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	spliced := forged[:strings.IndexByte(forged, '.')] + issued[strings.IndexByte(issued, '.'):]
	if claims := signer.Verify(spliced); claims != nil {
		t.Fatalf("Verify(spliced) = %+v, want nil", claims)
	}
}

func TestVerifyRejectsMalformedTokens(t *testing.T) {
	signer := newTestSigner(t)

	for _, token := range []string{
		"",
		"nodothere",
		"not-base64!.also-not-base64!",
		"eyJ4IjoxfQ.",
		".sig",
	} {
		if claims := signer.Verify(token); claims != nil {
			t.Fatalf("Verify(%q) = %+v, want nil", token, claims)
		}
	}
}

func TestVerifyExpiryGraceBoundary(t *testing.T) {
	signer := newTestSigner(t)

	tests := []struct {
		name       string
		expiredFor time.Duration
		wantValid  bool
	}{
		{name: "within_grace", expiredFor: 29 * time.Second, wantValid: true},
		{name: "past_grace", expiredFor: 31 * time.Second, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(Claims{
				ClientID:  "dev1",
				ExpiresAt: time.Now().Add(-tt.expiredFor).Unix(),
				Nonce:     "00112233aabbccdd",
			})
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}

			claims := signer.Verify(signer.sign(payload))
			if got := claims != nil; got != tt.wantValid {
				t.Fatalf("Verify() valid = %v, want %v", got, tt.wantValid)
			}
		})
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := newTestSigner(t)
	other, err := NewSigner("ffffffffffffffffffffffffffffffff", 2*time.Hour)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}

	issued, _, err := other.Issue(Claims{ClientID: "dev1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if claims := signer.Verify(issued); claims != nil {
		t.Fatalf("Verify(foreign token) = %+v, want nil", claims)
	}
}
