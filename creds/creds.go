// Package creds vends password hashing plus the statically configured admin
// identity. Admin is not a stored user: it is checked by direct comparison
// against configuration and never touches the user collection or hashing.
package creds

import (
	"golang.org/x/crypto/bcrypt"

	se "hivepages.io/hive/errors"
)

const bcryptCost = 10

// Hash derives a slow salted one-way digest of the password.
func Hash(passwd string) (string, *se.Err) {
	h, err := bcrypt.GenerateFromPassword([]byte(passwd), bcryptCost)
	if err != nil {
		return "", se.NewServiceFailure("error processing user password").WithCause(err)
	}
	return string(h), nil
}

// Verify reports whether the password matches the stored digest.
func Verify(passwd, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passwd)) == nil
}

// Admin holds the configured administrator secrets.
type Admin struct {
	ID     string
	Passwd string
}

// Match reports whether the presented credentials are the admin's. An empty
// configured id disables the admin branch entirely.
func (a Admin) Match(id, passwd string) bool {
	return a.ID != "" && id == a.ID && passwd == a.Passwd
}
