package utils

import (
	"regexp"
	"testing"
)

func TestShortenString(t *testing.T) {
	tests := []struct {
		in       string
		l        int
		expected string
	}{
		{"Praxis am Anger", 6, "Praxis..."},
		{"Praxis", 10, "Praxis"},
		{"", 3, ""},
		{"Praxis", 0, "Praxis"},
		{"Praxis", 6, "Praxis"},
		{"Müllerstraße", 6, "Müller..."},
		{"ÄÖÜ", 2, "ÄÖ..."},
	}
	for _, tt := range tests {
		if got := ShortenString(tt.in, tt.l); got != tt.expected {
			t.Errorf("ShortenString(%q, %d) = %q, expected %q", tt.in, tt.l, got, tt.expected)
		}
	}
}

var randomRe = regexp.MustCompile(`^www\.kv-thueringen\.de-[0-9a-f]{16}$`)

func TestRandomString(t *testing.T) {
	seen := map[string]bool{}
	for range 5 {
		s, err := RandomString("www.kv-thueringen.de")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !randomRe.MatchString(s) {
			t.Fatalf("unexpected format %q", s)
		}
		if seen[s] {
			t.Fatalf("duplicate value %q", s)
		}
		seen[s] = true
	}
}
