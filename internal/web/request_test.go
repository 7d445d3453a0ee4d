package web

import "testing"

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		line   string
		method string
		target string
		ok     bool
	}{
		{"GET / HTTP/1.1", "GET", "/", true},
		{"POST /api/power/on HTTP/1.0", "POST", "/api/power/on", true},
		{"GET /a?b=c HTTP/1.1", "GET", "/a?b=c", true},
		{"GET /x HTTP/1.1 extra", "GET", "/x", true},
		{"GET", "", "", false},
		{"GET /", "", "", false},
		{" / HTTP/1.1", "", "", false},
		{"GET  HTTP/1.1", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m, p, ok := parseRequestLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && (m != tt.method || p != tt.target) {
				t.Errorf("got %q %q, want %q %q", m, p, tt.method, tt.target)
			}
		})
	}
}

func TestStripQuery(t *testing.T) {
	tests := map[string]string{
		"/api/power/led":      "/api/power/led",
		"/api/power/led?x=1":  "/api/power/led",
		"/?":                  "/",
		"/api/health?a=1?b=2": "/api/health",
	}
	for in, want := range tests {
		if got := stripQuery(in); got != want {
			t.Errorf("stripQuery(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestContentLength(t *testing.T) {
	tests := []struct {
		line    string
		n       int64
		matched bool
	}{
		{"Content-Length: 42", 42, true},
		{"content-length:7", 7, true},
		{"CONTENT-LENGTH :  3 ", 3, true},
		{"Content-Length: abc", 0, true},
		{"Content-Length: -5", 0, true},
		{"Content-Type: text/plain", 0, false},
		{"Content-Length-Extra: 9", 0, false},
		{"no colon here", 0, false},
	}
	for _, tt := range tests {
		n, ok := contentLength(tt.line)
		if ok != tt.matched || n != tt.n {
			t.Errorf("contentLength(%q): got %d %v, want %d %v", tt.line, n, ok, tt.n, tt.matched)
		}
	}
}
