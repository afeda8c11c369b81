package util

import "testing"

func TestContentHash(t *testing.T) {
	// sha256("hello")
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	if got := ContentHash([]byte("hello")); got != want {
		t.Errorf("ContentHash = %s, want %s", got, want)
	}
	if got := ContentHashString("hello"); got != want {
		t.Errorf("ContentHashString = %s, want %s", got, want)
	}
	if ContentHash(nil) == ContentHash([]byte("x")) {
		t.Error("Expected different hashes for different content")
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"", "/"},
		{"/posts/1/edit", "/posts/1/edit"},
		{"/posts?page=2", "/posts?page=2"},
		{"https://evil.example", "/"},
		{"//evil.example", "/"},
		{"/\\evil.example", "/"},
		{"posts", "/"},
	}

	for _, tt := range tests {
		if got := SafeRedirect(tt.target, "/"); got != tt.want {
			t.Errorf("SafeRedirect(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}
