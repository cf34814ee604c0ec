package accounts

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks the address shape used for account identifiers
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return validationError("email", "invalid email format")
	}
	return nil
}

// ValidatePassword enforces the minimum-strength policy: at least
// MinPasswordLength characters with one uppercase, one lowercase, one
// digit and one symbol.
func ValidatePassword(password string, minLength int) error {
	if len(password) < minLength {
		return validationError("password", fmt.Sprintf("password must be at least %d characters", minLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return validationError("password", "password must contain at least one uppercase letter")
	case !hasLower:
		return validationError("password", "password must contain at least one lowercase letter")
	case !hasDigit:
		return validationError("password", "password must contain at least one number")
	case !hasSymbol:
		return validationError("password", "password must contain at least one special character")
	}

	return nil
}

// ValidateFullName requires a non-empty name within the length cap
func ValidateFullName(fullName string, maxLength int) error {
	if strings.TrimSpace(fullName) == "" {
		return validationError("full_name", "full name is required")
	}
	if len(fullName) > maxLength {
		return validationError("full_name", fmt.Sprintf("full name must not exceed %d characters", maxLength))
	}
	return nil
}

// ValidatePhone checks an E.164 formatted phone number
func ValidatePhone(phone string) error {
	num, err := phonenumbers.Parse(phone, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return validationError("phone_number", "invalid phone number format")
	}
	return nil
}

// ValidateAge requires the account holder to be at least minimumAge at
// the reference date. A nil date of birth passes, the field is optional.
func ValidateAge(dateOfBirth *time.Time, minimumAge int, now time.Time) error {
	if dateOfBirth == nil {
		return nil
	}

	age := now.Year() - dateOfBirth.Year()
	anniversary := dateOfBirth.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}

	if age < minimumAge {
		return validationError("date_of_birth", fmt.Sprintf("user must be at least %d years old", minimumAge))
	}
	return nil
}

// SplitFullName derives first and last name from a display name.
// Single-token names yield an empty last name, extra tokens fold into it.
func SplitFullName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// UsernameFromEmail derives a candidate username from the local part
func UsernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
