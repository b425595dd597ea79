package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash should be a bcrypt digest, got %q", hash)
	}
	if !h.Verify("correct-horse-battery-staple", hash) {
		t.Error("Verify() should return true for correct password")
	}
	if h.Verify("wrong-password", hash) {
		t.Error("Verify() should return false for wrong password")
	}
}

func TestHasher_UniqueSalts(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash1, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hash2, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if hash1 == hash2 {
		t.Error("same password should produce different hashes (unique salts)")
	}
	if !h.Verify("same-password", hash1) || !h.Verify("same-password", hash2) {
		t.Error("both hashes should verify")
	}
}

func TestHasher_MalformedDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	for _, digest := range []string{"", "not-a-hash", "$2a$10$short", "$argon2id$v=19$m=65536,t=3,p=1$abc$def"} {
		if h.Verify("password", digest) {
			t.Errorf("Verify() with digest %q should be false", digest)
		}
	}
}

func TestHasher_PasswordTooLong(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	if _, err := h.Hash(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash(73 bytes) error = %v, want ErrPasswordTooLong", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 72)); err != nil {
		t.Errorf("Hash(72 bytes) error = %v", err)
	}
}

func TestHasher_EmptyPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("")
	if err != nil {
		t.Fatalf("Hash(\"\") error = %v", err)
	}
	if !h.Verify("", hash) {
		t.Error("empty password should verify against its own hash")
	}
}

func TestNewHasher_Cost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultCost},
		{1, bcrypt.MinCost},
		{12, 12},
		{99, bcrypt.MaxCost},
	}
	for _, tt := range tests {
		if got := NewHasher(tt.in).Cost(); got != tt.want {
			t.Errorf("NewHasher(%d).Cost() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHasher_CostEmbedded(t *testing.T) {
	hash, err := NewHasher(5).Hash("pw")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != 5 {
		t.Errorf("embedded cost = %d, want 5", cost)
	}
}
