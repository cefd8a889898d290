package account

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"time"
)

const verificationTokenBytes = 32

// newVerificationToken returns a URL-safe random token for confirmation and reset links.
func newVerificationToken() (string, error) {
	b := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// checkVerificationToken applies the single-use token rules: present, equal to
// the presented value, and not past its expiry.
func checkVerificationToken(stored *string, expiry *time.Time, presented string, now time.Time) error {
	if stored == nil || *stored == "" || presented == "" ||
		subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) != 1 {
		return fail(KindTokenMismatch, "token does not match")
	}
	if expiry == nil || !now.Before(*expiry) {
		return fail(KindTokenExpired, "token has expired")
	}
	return nil
}
