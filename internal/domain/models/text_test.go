package models

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateChars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than limit", "abc", 10, "abc"},
		{"exactly at limit", "abcde", 5, "abcde"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"zero limit", "abc", 0, ""},
		{"multibyte cut", "§1 Eigenkapitalanforderungen", 2, "§1"},
		{"cut inside multibyte run", "参照条項参照条項", 3, "参照条"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateChars(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("TruncateChars(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result is not valid UTF-8: %q", got)
			}
		})
	}
}
