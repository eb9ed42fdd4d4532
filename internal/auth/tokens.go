package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Lifetimes of the single-use tokens sent by email.
const (
	EmailVerificationTTL = 24 * time.Hour
	PasswordResetTTL     = 10 * time.Minute
)

// BackupCodeCount is how many recovery codes enabling 2FA produces.
const BackupCodeCount = 10

// NewOneTimeToken returns a random token for a link and its sha256 hash.
// Only the hash is stored, so a database leak does not expose live links.
func NewOneTimeToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("auth: generating token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, HashToken(raw), nil
}

// HashToken is the lookup key for a raw token or backup code.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateBackupCodes returns BackupCodeCount codes (8 upper-case hex chars)
// and their hashes, index-aligned.
func GenerateBackupCodes() (codes, hashes []string, err error) {
	codes = make([]string, BackupCodeCount)
	hashes = make([]string, BackupCodeCount)
	for i := range codes {
		b := make([]byte, 4)
		if _, err := rand.Read(b); err != nil {
			return nil, nil, fmt.Errorf("auth: generating backup code: %w", err)
		}
		codes[i] = strings.ToUpper(hex.EncodeToString(b))
		hashes[i] = HashToken(codes[i])
	}
	return codes, hashes, nil
}

// ConsumeBackupCode looks code up in hashes. On a match it returns the
// remaining hashes with the used one removed, so each code works once.
func ConsumeBackupCode(hashes []string, code string) ([]string, bool) {
	h := HashToken(strings.ToUpper(strings.TrimSpace(code)))
	for i, stored := range hashes {
		if stored == h {
			rest := make([]string, 0, len(hashes)-1)
			rest = append(rest, hashes[:i]...)
			rest = append(rest, hashes[i+1:]...)
			return rest, true
		}
	}
	return hashes, false
}
