package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion resolves numbers written without a country code.
const DefaultPhoneRegion = "IN"

var rePhoneNoise = regexp.MustCompile(`[^0-9+]+`)

// SanitizePhone formats phone as E.164. Numbers libphonenumber cannot parse
// keep their digits and a leading plus sign.
func SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	plus := strings.HasPrefix(phone, "+")
	digits := strings.ReplaceAll(rePhoneNoise.ReplaceAllString(phone, ""), "+", "")
	if digits == "" {
		return ""
	}
	if plus {
		digits = "+" + digits
	}

	parsed, err := phonenumbers.Parse(digits, DefaultPhoneRegion)
	if err != nil {
		return digits
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
