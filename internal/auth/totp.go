package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPIssuer is the label authenticator apps show next to the account.
const TOTPIssuer = "ClothConnect"

// TOTPKey is a freshly generated shared secret.
type TOTPKey struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// GenerateTOTP creates a new base32 secret for accountName (the user's email).
func GenerateTOTP(accountName string) (*TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: generating TOTP secret: %w", err)
	}
	return &TOTPKey{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

// ValidateTOTP checks a 6-digit code against secret, accepting the previous
// and next 30-second step to tolerate clock drift.
func ValidateTOTP(secret, code string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, now.UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
