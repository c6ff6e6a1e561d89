package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		window time.Duration
		want   string
	}{
		{name: "zero", window: 0, want: "1"},
		{name: "fractional_rounds_up", window: 1500 * time.Millisecond, want: "2"},
		{name: "whole_second", window: time.Second, want: "1"},
		{name: "minute", window: time.Minute, want: "60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryAfter(tt.window); got != tt.want {
				t.Fatalf("retryAfter(%s) = %q, want %q", tt.window, got, tt.want)
			}
		})
	}
}

func TestLoginRateLimitReturnsStructured429(t *testing.T) {
	server := newTestServer(t)

	var last int
	var lastBody []byte
	for range 6 {
		rr := doJSON(t, server, http.MethodPost, "/admin/login", `{"pin":"0000"}`)
		last = rr.Code
		lastBody = rr.Body.Bytes()
	}

	if last != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want %d", last, http.StatusTooManyRequests)
	}

	var resp errorBody
	if err := json.Unmarshal(lastBody, &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, lastBody)
	}
	if resp.Status != "error" || resp.Message != "rate limit exceeded" {
		t.Fatalf("429 body = %+v", resp)
	}
}

func TestClientIDHeaderGetsOwnBucket(t *testing.T) {
	server := newTestServer(t)

	// Exhaust the shared IP bucket.
	for range 5 {
		doJSON(t, server, http.MethodPost, "/admin/login", `{"pin":"0000"}`)
	}

	rr := doJSON(t, server, http.MethodPost, "/admin/login", `{"pin":"0000"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("ip bucket status = %d, want %d", rr.Code, http.StatusTooManyRequests)
	}

	req := newJSONRequest(http.MethodPost, "/admin/login", `{"pin":"0000"}`)
	req.Header.Set(clientIDHeader, "separate-client")
	rr2 := serve(server, req)
	if rr2.Code == http.StatusTooManyRequests {
		t.Fatal("distinct client id shares the ip bucket")
	}
}
