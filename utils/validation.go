// utils/validation.go
package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// At most 15 characters including the +, which is what the mobile columns hold.
var phonePattern = regexp.MustCompile(`^(\+[0-9]{7,14}|[0-9]{7,15})$`)

// NormalizePhone strips spaces, dashes and parentheses.
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}

// ValidatePhone checks for 7-15 digits, or a + and 7-14 digits.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(NormalizePhone(phone))
}

// TooLong reports whether s has more than max characters. Column widths count
// characters, not bytes.
func TooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}
