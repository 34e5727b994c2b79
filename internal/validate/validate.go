// Package validate holds the field format checks applied to operator
// input before it reaches a service call. Each check returns a pass/fail
// plus a user-facing message; nothing here touches state.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	reZipCode     = regexp.MustCompile(`^[1-9][0-9]{3}[A-Z]{2}$`)
	reMobilePhone = regexp.MustCompile(`^\+31-6-\d{8}$`)
	reEmail       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	rePassword    = regexp.MustCompile(`^[A-Za-z\d@$!%*?&_#-]{12,30}$`)
	reUsername    = regexp.MustCompile(`^[a-zA-Z0-9_.']+$`)
	reAlphaOnly   = regexp.MustCompile(`^[a-zA-Z\s.-]+$`)
	reHouseNumber = regexp.MustCompile(`^[1-9]\d{0,2}(\s*-?\s*[a-zA-Z0-9]{0,2})?$`)
	reSerial      = regexp.MustCompile(`^[A-Za-z0-9]{10,17}$`)
	reLicense     = regexp.MustCompile(`^[A-Z]{1,2}\d+$`)
)

// Cities the operator serves; traveller addresses must use one of these
var Cities = []string{
	"Rotterdam", "Schiedam", "Delft", "The Hague", "Amsterdam",
	"Spijkenisse", "Barendrecht", "Brielle", "Hellevoetsluis", "Vlaardingen",
}

// Name checks a person name: letters, spaces, dots, hyphens
func Name(name string) (bool, string) {
	if reAlphaOnly.MatchString(name) && len(name) < 50 {
		return true, ""
	}
	return false, "must only contain letters, spaces, dots, or hyphens and be shorter than 50 characters"
}

// Gender accepts male or female
func Gender(g string) (bool, string) {
	switch strings.ToLower(g) {
	case "male", "female":
		return true, ""
	}
	return false, "gender must be either 'male' or 'female'"
}

// StreetName checks an address street field
func StreetName(s string) (bool, string) {
	if reAlphaOnly.MatchString(s) && len(s) < 100 {
		return true, ""
	}
	return false, "must only contain letters, spaces, dots, or hyphens and be shorter than 100 characters"
}

// HouseNumber checks a Dutch house number (123, 123A, 123-A)
func HouseNumber(n string) (bool, string) {
	if reHouseNumber.MatchString(n) {
		return true, ""
	}
	return false, "invalid house number; expected a number with an optional suffix (e.g. 24 B)"
}

// ZipCode checks the Dutch DDDDXX format
func ZipCode(z string) (bool, string) {
	if reZipCode.MatchString(strings.ToUpper(z)) {
		return true, ""
	}
	return false, "invalid zip code; expected DDDDXX (e.g. 1234AB)"
}

// City checks against the served city list
func City(c string) (bool, string) {
	for _, known := range Cities {
		if c == known {
			return true, ""
		}
	}
	return false, "unknown city; must be one of: " + strings.Join(Cities, ", ")
}

// MobilePhone checks the +31-6-DDDDDDDD format
func MobilePhone(p string) (bool, string) {
	if reMobilePhone.MatchString(p) {
		return true, ""
	}
	return false, "invalid mobile phone; expected +31-6-DDDDDDDD"
}

// Email checks email address format
func Email(e string) (bool, string) {
	if reEmail.MatchString(e) && len(e) < 254 {
		return true, ""
	}
	return false, "invalid email address"
}

// DrivingLicense checks the Dutch format: 1 letter + 8 digits or
// 2 letters + 7 digits
func DrivingLicense(l string) (bool, string) {
	l = strings.ToUpper(l)
	if !reLicense.MatchString(l) || len(l) != 9 {
		return false, "invalid driving license; expected 1 letter + 8 digits or 2 letters + 7 digits"
	}
	return true, ""
}

// Date checks YYYY-MM-DD, not in the future, not more than 120 years ago
func Date(s string) (bool, string) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return false, "invalid date; expected YYYY-MM-DD"
	}
	now := time.Now()
	if d.After(now) {
		return false, "date cannot be in the future"
	}
	if d.Before(now.AddDate(-120, 0, 0)) {
		return false, "date cannot be more than 120 years ago"
	}
	return true, ""
}

// Password checks complexity: 12-30 chars with upper, lower, digit, and
// a special character
func Password(p string) (bool, string) {
	msg := "password must be 12-30 chars with an uppercase, lowercase, digit, and special character"
	if !rePassword.MatchString(p) {
		return false, msg
	}
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if upper && lower && digit && special {
		return true, ""
	}
	return false, msg
}

// Username checks length and character set
func Username(u string) (bool, string) {
	if len(u) < 8 || len(u) > 20 {
		return false, "username must be between 8 and 20 characters"
	}
	if !reUsername.MatchString(u) {
		return false, "username may only contain letters, digits, underscores, apostrophes, and periods"
	}
	return true, ""
}

// ScooterSerial checks the 10-17 alphanumeric serial format
func ScooterSerial(s string) (bool, string) {
	if reSerial.MatchString(s) {
		return true, ""
	}
	return false, "serial number must be 10-17 alphanumeric characters"
}

// SoC checks a state-of-charge percentage
func SoC(v float64) (bool, string) {
	if v >= 0 && v <= 100 {
		return true, ""
	}
	return false, "state of charge must be between 0 and 100"
}

// Coordinate checks a latitude or longitude value
func Coordinate(v float64, kind string) (bool, string) {
	switch kind {
	case "latitude":
		if v >= -90 && v <= 90 {
			return true, ""
		}
		return false, "latitude must be between -90 and 90"
	case "longitude":
		if v >= -180 && v <= 180 {
			return true, ""
		}
		return false, "longitude must be between -180 and 180"
	}
	return false, fmt.Sprintf("unknown coordinate type %q", kind)
}
