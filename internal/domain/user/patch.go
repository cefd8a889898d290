package user

import (
	"strings"
	"time"
)

// TokenUpdate sets or clears a single-use token together with its expiry.
// An empty Token clears both columns.
type TokenUpdate struct {
	Token     string
	ExpiresAt time.Time
}

func SetToken(token string, expiresAt time.Time) *TokenUpdate {
	return &TokenUpdate{Token: token, ExpiresAt: expiresAt}
}

func ClearToken() *TokenUpdate {
	return &TokenUpdate{}
}

func (t *TokenUpdate) IsClear() bool {
	return t != nil && t.Token == ""
}

// Patch is a single-document update. Nil fields are left untouched; an
// empty string in a profile field clears it.
//
// IfConfirmationToken and IfResetToken turn the patch into a compare-and-set:
// the store applies it only when the stored token still equals the given value.
type Patch struct {
	Email          *string
	HashedPassword *string

	DisplayName *string
	PhoneNumber *string
	Gender      *string
	Location    *string
	AvatarPath  *string

	IsAdmin *bool
	Status  *Status

	ConfirmationToken *TokenUpdate
	ResetToken        *TokenUpdate

	IfConfirmationToken *string
	IfResetToken        *string
}

func (p Patch) IsEmpty() bool {
	return p.Email == nil && p.HashedPassword == nil &&
		p.DisplayName == nil && p.PhoneNumber == nil && p.Gender == nil &&
		p.Location == nil && p.AvatarPath == nil &&
		p.IsAdmin == nil && p.Status == nil &&
		p.ConfirmationToken == nil && p.ResetToken == nil
}

// Matches reports whether the guards of the patch hold for u.
func (p Patch) Matches(u User) bool {
	if p.IfConfirmationToken != nil {
		if u.ConfirmationToken == nil || *u.ConfirmationToken != *p.IfConfirmationToken {
			return false
		}
	}
	if p.IfResetToken != nil {
		if u.ResetToken == nil || *u.ResetToken != *p.IfResetToken {
			return false
		}
	}
	return true
}

// Apply returns a copy of u with the patch applied. Guards are not checked.
func (p Patch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.HashedPassword != nil {
		u.HashedPassword = *p.HashedPassword
	}
	if p.DisplayName != nil {
		u.DisplayName = optional(*p.DisplayName)
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = optional(*p.PhoneNumber)
	}
	if p.Gender != nil {
		u.Gender = optional(*p.Gender)
	}
	if p.Location != nil {
		u.Location = optional(*p.Location)
	}
	if p.AvatarPath != nil {
		u.AvatarPath = optional(*p.AvatarPath)
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.ConfirmationToken != nil {
		u.ConfirmationToken, u.ConfirmationTokenExpiry = tokenColumns(p.ConfirmationToken)
	}
	if p.ResetToken != nil {
		u.ResetToken, u.ResetTokenExpiry = tokenColumns(p.ResetToken)
	}
	return u
}

func tokenColumns(t *TokenUpdate) (*string, *time.Time) {
	if t.IsClear() {
		return nil, nil
	}
	return ptr(t.Token), ptr(t.ExpiresAt)
}

// NormalizeOptional trims an optional profile value; blank strings become nil.
func NormalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// EditOptional trims a submitted profile value for a patch. Unlike
// NormalizeOptional a blank value stays set, so the field is cleared.
func EditOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptr[T any](v T) *T {
	return &v
}
