package core

import "testing"

func TestGenerateCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := generateCode()
		if len(code) != CodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), CodeLength)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
		seen[code] = true
	}
	// 200 draws from a million-code space colliding down to a handful would
	// mean the generator is broken, not unlucky.
	if len(seen) < 190 {
		t.Fatalf("only %d distinct codes in 200 draws", len(seen))
	}
}

func TestSha256HexStable(t *testing.T) {
	if sha256Hex("123456") != sha256Hex("123456") {
		t.Fatal("hash is not deterministic")
	}
	if sha256Hex("123456") == sha256Hex("123457") {
		t.Fatal("distinct codes hashed identically")
	}
	if got := len(sha256Hex("x")); got != 64 {
		t.Fatalf("expected 64 hex chars, got %d", got)
	}
}
