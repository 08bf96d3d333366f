package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrustedProxiesResolve(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10", " "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		name    string
		proxies TrustedProxies
		remote  string
		xff     string
		realIP  string
		want    string
	}{
		{name: "untrusted peer ignores headers", proxies: trusted, remote: "203.0.113.7:1234", xff: "1.1.1.1", realIP: "2.2.2.2", want: "203.0.113.7"},
		{name: "no proxies configured", proxies: nil, remote: "10.0.0.2:1234", xff: "1.1.1.1", want: "10.0.0.2"},
		{name: "trusted peer single hop", proxies: trusted, remote: "10.0.0.2:1234", xff: "198.51.100.9", want: "198.51.100.9"},
		{name: "rightmost untrusted hop wins", proxies: trusted, remote: "10.0.0.2:1234", xff: "6.6.6.6, 198.51.100.9, 10.1.2.3", want: "198.51.100.9"},
		{name: "exact address entry", proxies: trusted, remote: "192.168.1.10:80", realIP: "198.51.100.4", want: "198.51.100.4"},
		{name: "garbage header falls back to peer", proxies: trusted, remote: "10.0.0.2:1234", xff: "not-an-ip", want: "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := tt.proxies.Resolve(req); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := ParseTrustedProxies([]string{"10.0.0.0/40"}); err == nil {
		t.Fatal("expected error for bad CIDR")
	}
	if _, err := ParseTrustedProxies([]string{"proxy.internal"}); err == nil {
		t.Fatal("expected error for hostname")
	}
}

func TestClientIPWithoutResolution(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected socket peer, got %s", got)
	}
	req = req.WithContext(WithClientIP(req.Context(), "198.51.100.1"))
	if got := ClientIP(req); got != "198.51.100.1" {
		t.Fatalf("expected resolved address, got %s", got)
	}
}
