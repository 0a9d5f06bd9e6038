package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct public peer", "198.51.100.7:5000", "", "", "198.51.100.7"},
		{"public peer cannot spoof", "198.51.100.7:5000", "1.2.3.4", "", "198.51.100.7"},
		{"trusted proxy forwards", "10.0.0.2:5000", "203.0.113.5, 10.0.0.1", "", "203.0.113.5"},
		{"trusted proxy real ip", "127.0.0.1:5000", "", "203.0.113.6", "203.0.113.6"},
		{"invalid forwarded value", "192.168.1.1:80", "garbage", "", "192.168.1.1"},
		{"no port", "203.0.113.8", "", "", "203.0.113.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"ledger page", http.MethodGet, "/", "Mozilla/5.0", false},
		{"api call", http.MethodGet, "/api/workers-balances", "curl/8.0", false},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"traversal in query", http.MethodGet, "/static/?f=../../etc/passwd", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
	if d.Flagged() != 4 {
		t.Errorf("Flagged() = %d, want 4", d.Flagged())
	}
}

func TestDetectorMiddlewarePassesThrough(t *testing.T) {
	d := NewDetector()
	called := false
	h := d.Middleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if !called {
		t.Fatal("flagged request should still reach the handler")
	}
}

func TestHeadersMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	t.Run("page", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewHeadersMiddleware(PageHeadersConfig()).Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Header().Get("X-Frame-Options") != "DENY" {
			t.Error("X-Frame-Options not set")
		}
		if rr.Header().Get("Strict-Transport-Security") != "" {
			t.Error("HSTS should only be sent over TLS")
		}
	})

	t.Run("page over tls", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.TLS = &tls.ConnectionState{}
		NewHeadersMiddleware(PageHeadersConfig()).Middleware(next).ServeHTTP(rr, r)
		if rr.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
			t.Errorf("HSTS = %q", rr.Header().Get("Strict-Transport-Security"))
		}
	})

	t.Run("api skips empty values", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewHeadersMiddleware(APIHeadersConfig()).Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/", nil))
		if _, ok := rr.Header()["Permissions-Policy"]; ok {
			t.Error("empty header should not be set")
		}
		if rr.Header().Get("Cross-Origin-Resource-Policy") != "cross-origin" {
			t.Error("API responses must be readable cross-origin")
		}
	})
}
