package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOneTimeToken(t *testing.T) {
	raw, hash, err := NewOneTimeToken()
	require.NoError(t, err)

	assert.Len(t, raw, 64)
	assert.Equal(t, HashToken(raw), hash)
	assert.NotEqual(t, raw, hash)

	raw2, _, _ := NewOneTimeToken()
	assert.NotEqual(t, raw, raw2)
}

func TestBackupCodes_SingleUse(t *testing.T) {
	codes, hashes, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, codes, BackupCodeCount)
	require.Len(t, hashes, BackupCodeCount)

	rest, ok := ConsumeBackupCode(hashes, codes[3])
	require.True(t, ok)
	assert.Len(t, rest, BackupCodeCount-1)

	_, ok = ConsumeBackupCode(rest, codes[3])
	assert.False(t, ok, "a backup code must not work twice")

	// Codes are accepted regardless of case and surrounding spaces.
	_, ok = ConsumeBackupCode(rest, "  "+strings.ToLower(codes[0])+" ")
	assert.True(t, ok)
}

func TestValidateTOTP(t *testing.T) {
	key, err := GenerateTOTP("donor@example.com")
	require.NoError(t, err)
	assert.Contains(t, key.OTPAuthURL, "otpauth://totp/")
	assert.Contains(t, key.OTPAuthURL, "ClothConnect")

	now := time.Now()
	code, err := totp.GenerateCode(key.Secret, now)
	require.NoError(t, err)

	assert.True(t, ValidateTOTP(key.Secret, code, now))
	// One step of drift either way is tolerated.
	assert.True(t, ValidateTOTP(key.Secret, code, now.Add(30*time.Second)))
	// Two minutes later the code is stale.
	assert.False(t, ValidateTOTP(key.Secret, code, now.Add(2*time.Minute)))
	assert.False(t, ValidateTOTP(key.Secret, "", now))
	assert.False(t, ValidateTOTP("", code, now))
}
