package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHash_OutputLooksBcrypt(t *testing.T) {
	p := NewPasswordServiceForTest()

	hash, err := p.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("Hash() = %q, want a $2a$ bcrypt hash", hash)
	}
}

func TestHash_Salted(t *testing.T) {
	p := NewPasswordServiceForTest()

	h1, _ := p.Hash("same-password")
	h2, _ := p.Hash("same-password")
	if h1 == h2 {
		t.Error("Hash() returned identical hashes; salt is missing")
	}
}

func TestHash_LengthLimit(t *testing.T) {
	p := NewPasswordServiceForTest()

	if _, err := p.Hash(strings.Repeat("a", 73)); err == nil {
		t.Error("Hash() accepted a 73-byte password")
	}
	if _, err := p.Hash(strings.Repeat("a", 72)); err != nil {
		t.Errorf("Hash() rejected a 72-byte password: %v", err)
	}
}

func TestVerify(t *testing.T) {
	p := NewPasswordServiceForTest()
	hash, _ := p.Hash("s3cret-pass")

	if err := p.Verify(hash, "s3cret-pass"); err != nil {
		t.Errorf("Verify(correct) error = %v", err)
	}
	if err := p.Verify(hash, "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Verify(wrong) error = %v, want ErrInvalidPassword", err)
	}
	if err := p.Verify("not-a-hash", "x"); err == nil || errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Verify(garbage hash) error = %v, want a non-mismatch error", err)
	}
}

func TestNewPasswordService_ClampsCost(t *testing.T) {
	if got := NewPasswordService(99).cost; got != DefaultCost {
		t.Errorf("cost = %d, want DefaultCost", got)
	}
	if got := NewPasswordService(10).cost; got != 10 {
		t.Errorf("cost = %d, want 10", got)
	}
}
