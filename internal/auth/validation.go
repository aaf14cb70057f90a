package auth

import "regexp"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// PasswordRequirements defines the complexity requirements for a password.
// MaxLength tracks bcrypt's 72-byte input ceiling.
type PasswordRequirements struct {
	MinLength int
	MaxLength int
	HasUpper  bool
	HasLower  bool
	HasNumber bool
}

// GetPasswordRequirements returns the current password policy
func GetPasswordRequirements() PasswordRequirements {
	return PasswordRequirements{
		MinLength: 8,
		MaxLength: 72,
		HasUpper:  true,
		HasLower:  true,
		HasNumber: true,
	}
}

// ValidatePassword checks if a password meets the complexity requirements.
func ValidatePassword(password string) bool {
	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)
	reqs := GetPasswordRequirements()
	if len(password) < reqs.MinLength || len(password) > reqs.MaxLength {
		return false
	}
	for _, char := range password {
		switch {
		case 'A' <= char && char <= 'Z':
			hasUpper = true
		case 'a' <= char && char <= 'z':
			hasLower = true
		case '0' <= char && char <= '9':
			hasNumber = true
		}
	}
	return hasUpper && hasLower && hasNumber
}

// ValidateEmail checks if an email has a valid format.
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) < 255
}
