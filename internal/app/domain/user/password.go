package user

import "strings"

const passwordSymbols = "@$!%*?&"

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// StrongPassword reports whether p has at least MinPasswordLength
// characters, at least one letter and one digit, and only letters, digits
// and the symbols @$!%*?&.
func StrongPassword(p string) bool {
	if len(p) < MinPasswordLength {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
		default:
			return false
		}
	}
	return letter && digit
}
