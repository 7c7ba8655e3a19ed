package validation

import (
	"fmt"
	"unicode/utf8"
)

const (
	BioMaxLength        = 35
	URLMaxLength        = 50
	OccupationMaxLength = 50
	LocationMaxLength   = 50
)

// ValidateMaxLength limits a free-text field to max characters.
func ValidateMaxLength(value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%d자 이내로 입력하세요.", max)
	}
	return nil
}
