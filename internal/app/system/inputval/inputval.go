// Package inputval holds small form-field checks shared by the signup and
// message handlers.
package inputval

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// IsValidEmail reports whether s is a bare address (no display name) with a
// non-empty local part and domain and no stray dots.
func IsValidEmail(s string) bool {
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, " \t\r\n<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return dotsOK(s[:at]) && dotsOK(s[at+1:])
}

func dotsOK(part string) bool {
	return !strings.HasPrefix(part, ".") &&
		!strings.HasSuffix(part, ".") &&
		!strings.Contains(part, "..")
}

// Length counts characters, not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// LengthBetween reports whether s has between min and max characters inclusive.
func LengthBetween(s string, min, max int) bool {
	n := Length(s)
	return n >= min && n <= max
}
