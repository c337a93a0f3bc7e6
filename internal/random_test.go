package internal

import "testing"

func TestGuestTokenRoundTrip(t *testing.T) {
	tok, err := NewGuestToken()
	if err != nil {
		t.Fatalf("NewGuestToken: %v", err)
	}
	if len(tok) != 22 {
		t.Fatalf("expected 22 characters, got %d (%q)", len(tok), tok)
	}
	if _, err := ParseTokenID(tok); err != nil {
		t.Fatalf("ParseTokenID: %v", err)
	}
}

func TestGuestTokensDiffer(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		tok, err := NewGuestToken()
		if err != nil {
			t.Fatalf("NewGuestToken: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestParseTokenIDRejectsWrongSize(t *testing.T) {
	if _, err := ParseTokenID("c2hvcnQ"); err == nil {
		t.Fatalf("expected size error")
	}
	if _, err := ParseTokenID("not base64!"); err == nil {
		t.Fatalf("expected decode error")
	}
}
