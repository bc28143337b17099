package utils

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	nonDigits  = regexp.MustCompile(`\D`)
	validate   = validator.New()
)

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	return phoneRegex.MatchString(cleaned)
}

// NormalizePhone turns a gateway address such as "whatsapp:+55 11 99999-0000"
// into E.164. Numbers without a leading "+" that do not already start with
// the country code get it prefixed.
func NormalizePhone(raw, countryCode string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:"))
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(raw, "+") || countryCode == "" || strings.HasPrefix(digits, countryCode) {
		return "+" + digits
	}
	return "+" + countryCode + digits
}

func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

func ValidateEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// Fold lowercases s and strips diacritics so "Manhã" matches "manha".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
