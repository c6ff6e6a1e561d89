package api

import (
	"net/http/httptest"
	"testing"
)

func TestResolveIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	if err != nil {
		t.Fatalf("NewClientIPResolver() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.7:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")

	if got := resolver.Resolve(req); got != "198.51.100.7" {
		t.Fatalf("Resolve() = %q, want peer address", got)
	}
}

func TestResolveHonorsForwardedForFromTrustedProxy(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("NewClientIPResolver() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.1.2.3")

	if got := resolver.Resolve(req); got != "203.0.113.50" {
		t.Fatalf("Resolve() = %q, want forwarded address", got)
	}
}

func TestResolveFallsBackToRealIPHeader(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.1"})
	if err != nil {
		t.Fatalf("NewClientIPResolver() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:4321"
	req.Header.Set("X-Real-IP", "203.0.113.50")

	if got := resolver.Resolve(req); got != "203.0.113.50" {
		t.Fatalf("Resolve() = %q, want real-ip address", got)
	}
}

func TestNewClientIPResolverRejectsGarbage(t *testing.T) {
	if _, err := NewClientIPResolver([]string{"not-a-network"}); err == nil {
		t.Fatal("NewClientIPResolver(garbage) error = nil, want error")
	}
}

func TestResolveIPv6Peer(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	if err != nil {
		t.Fatalf("NewClientIPResolver() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[2001:db8::1]:4321"

	if got := resolver.Resolve(req); got != "2001:db8::1" {
		t.Fatalf("Resolve() = %q, want ipv6 peer", got)
	}
}
