// Package authutil wraps bcrypt for the two secrets the board stores:
// account passwords and the shared join passphrase.
package authutil

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is fixed so hashes written today verify the same way tomorrow.
const BcryptCost = 10

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 8

// MaxPasswordBytes is bcrypt's input limit; longer input is rejected by the
// hasher rather than truncated.
const MaxPasswordBytes = 72

// Errors returned by ValidatePassword.
var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
)

// HashPassword returns the bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches hash. A malformed hash is a
// mismatch, not an error.
func CheckPassword(plain, hash string) bool {
	return CompareHash(plain, hash) == nil
}

// CompareHash is CheckPassword with the underlying reason. It returns nil on
// a match, bcrypt.ErrMismatchedHashAndPassword on a wrong value and any other
// error when the stored hash cannot be parsed.
func CompareHash(plain, hash string) error {
	if hash == "" {
		return errors.New("empty hash")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// ValidatePassword enforces the signup password rules.
func ValidatePassword(plain string) error {
	if utf8.RuneCountInString(plain) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(plain) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// PasswordRules describes ValidatePassword for display next to the form.
func PasswordRules() string {
	return fmt.Sprintf("At least %d characters and at most %d bytes.", MinPasswordLength, MaxPasswordBytes)
}
