package signal

import (
	"net/http/httptest"
	"testing"
)

// TestOriginChecker verifies the allow-list never fails open.
func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no list allows any", nil, "https://evil.example", true},
		{"blank entries count as no list", []string{" ", ""}, "https://evil.example", true},
		{"listed origin", []string{"http://localhost:3000"}, "http://localhost:3000", true},
		{"listed origin is case insensitive", []string{"HTTP://LocalHost:3000"}, "http://localhost:3000", true},
		{"unlisted origin", []string{"http://localhost:3000"}, "https://evil.example", false},
		{"invalid-only list rejects", []string{"localhost:3000"}, "https://evil.example", false},
		{"invalid entry is skipped", []string{"localhost:3000", "https://chat.example"}, "https://chat.example", true},
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"missing origin header", []string{"http://localhost:3000"}, "", true},
		{"malformed origin header", []string{"http://localhost:3000"}, "::not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := originChecker(tt.allowed)
			r := httptest.NewRequest("GET", "/ws/rooms/general", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := check(r); got != tt.want {
				t.Errorf("origin %q with %q: got %v, want %v", tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}

// TestNormalizeOrigins verifies parsing of the configured list.
func TestNormalizeOrigins(t *testing.T) {
	got, all := normalizeOrigins([]string{"https://A.example", "bad", "*", ""})
	if !all {
		t.Error("wildcard not detected")
	}
	if len(got) != 1 || got[0] != "https://a.example" {
		t.Errorf("normalized = %q", got)
	}
}
