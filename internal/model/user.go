// Package model defines the data structures used throughout the application.
//
// Struct tags serve three consumers: `json` for the HTTP API, `db` as column
// documentation for the sqlite store, and `bson` for the mongo store.
package model

import "time"

// Role is a user's access level. It is fixed at registration and only changes
// through the admin role endpoint.
type Role string

const (
	RoleDonor Role = "donor"
	RoleNGO   Role = "ngo"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleNGO, RoleAdmin:
		return true
	}
	return false
}

// User is a donor, NGO or administrator account.
//
// Everything an attacker could use to take over the account (password hash,
// TOTP secret, backup codes, one-time token hashes) is tagged json:"-" so it
// can never leak through an API response.
type User struct {
	ID              string `json:"id"              db:"id"               bson:"_id"`
	Name            string `json:"name"            db:"name"             bson:"name"`
	Email           string `json:"email"           db:"email"            bson:"email"`
	Role            Role   `json:"role"            db:"role"             bson:"role"`
	Phone           string `json:"phone,omitempty" db:"phone"            bson:"phone,omitempty"`
	Address         string `json:"address,omitempty" db:"address"        bson:"address,omitempty"`
	City            string `json:"city,omitempty"  db:"city"             bson:"city,omitempty"`
	NGORegistration string `json:"ngoRegistration,omitempty" db:"ngo_registration" bson:"ngo_registration,omitempty"`
	Verified        bool   `json:"verified"        db:"verified"         bson:"verified"` // NGO verified by an admin

	GitHubID  int64  `json:"githubId,omitempty"  db:"github_id"  bson:"github_id,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty" db:"avatar_url" bson:"avatar_url,omitempty"`

	EmailVerified    bool `json:"isEmailVerified"    db:"email_verified"     bson:"email_verified"`
	TwoFactorEnabled bool `json:"isTwoFactorEnabled" db:"two_factor_enabled" bson:"two_factor_enabled"`

	PasswordHash        string     `json:"-" db:"password_hash"         bson:"password_hash"`
	TwoFactorSecret     string     `json:"-" db:"two_factor_secret"     bson:"two_factor_secret,omitempty"`
	BackupCodeHashes    []string   `json:"-" db:"backup_codes"          bson:"backup_codes,omitempty"`
	EmailTokenHash      string     `json:"-" db:"email_token_hash"      bson:"email_token_hash,omitempty"`
	EmailTokenExpires   *time.Time `json:"-" db:"email_token_expires"   bson:"email_token_expires,omitempty"`
	ResetTokenHash      string     `json:"-" db:"reset_token_hash"      bson:"reset_token_hash,omitempty"`
	ResetTokenExpires   *time.Time `json:"-" db:"reset_token_expires"   bson:"reset_token_expires,omitempty"`
	LastPasswordChange  *time.Time `json:"lastPasswordChange,omitempty" db:"last_password_change" bson:"last_password_change,omitempty"`

	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updated_at"`
}

// TokenKind selects which one-time token a lookup should match.
type TokenKind int

const (
	TokenEmailVerification TokenKind = iota
	TokenPasswordReset
)

// ProfileUpdate carries the user-editable profile fields. Nil means
// "leave unchanged". Role, email and password are deliberately absent.
type ProfileUpdate struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	Address         *string `json:"address"`
	City            *string `json:"city"`
	NGORegistration *string `json:"ngoRegistration"`
	AvatarURL       *string `json:"avatarUrl"`
}

// Apply copies the non-nil fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.City != nil {
		u.City = *p.City
	}
	if p.NGORegistration != nil {
		u.NGORegistration = *p.NGORegistration
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
}
