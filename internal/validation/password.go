package validation

import (
	"errors"
	"unicode/utf8"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 50
)

// ValidatePassword checks the password length rules.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < PasswordMinLength || n > PasswordMaxLength {
		return errors.New("패스워드는 8자 이상 50자 이내로 입력하세요.")
	}

	// bcrypt silently truncates anything past 72 bytes
	if len(password) > 72 {
		return errors.New("패스워드가 너무 깁니다.")
	}

	return nil
}
