package validation

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var nicknamePattern = regexp.MustCompile(`^[ㄱ-ㅎ가-힣a-z0-9_-]{3,20}$`)

// NormalizeNickname trims and NFC-normalizes a nickname so decomposed Hangul
// from some input methods matches the precomposed pattern.
func NormalizeNickname(nickname string) string {
	return norm.NFC.String(strings.TrimSpace(nickname))
}

// ValidateNickname expects a normalized nickname.
func ValidateNickname(nickname string) error {
	if nickname == "" {
		return errors.New("닉네임을 입력하세요.")
	}
	if !nicknamePattern.MatchString(nickname) {
		return errors.New("닉네임은 공백 없이 문자와 숫자로만 3자 이상 20자 이내로 입력하세요.")
	}
	return nil
}
