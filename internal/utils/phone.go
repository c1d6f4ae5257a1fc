package utils

import "regexp"

var (
	affiliatePhonePattern = regexp.MustCompile(`^\+20\d{10}$`)
	saudiPhonePattern     = regexp.MustCompile(`^\+966\d{9}$`)
	uaePhonePattern       = regexp.MustCompile(`^\+971\d{9}$`)
)

// IsValidAffiliatePhone reports whether phone is an Egyptian number, the only
// payout destination supported.
func IsValidAffiliatePhone(phone string) bool {
	return affiliatePhonePattern.MatchString(phone)
}

// IsValidCustomerPhone reports whether phone matches the dialing plan of the
// customer's country. Unknown countries are rejected.
func IsValidCustomerPhone(phone string, country string) bool {
	switch country {
	case "Saudi Arabia":
		return saudiPhonePattern.MatchString(phone)
	case "UAE":
		return uaePhonePattern.MatchString(phone)
	default:
		return false
	}
}
