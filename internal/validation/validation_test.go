package validation

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"hwayeon@example.com", true},
		{"a.b+c@sub.example.org", true},
		{"", false},
		{"not-an-email", false},
		{"Hwayeon <hwayeon@example.com>", false},
		{"hwayeon@", false},
		{strings.Repeat("a", 250) + "@x.io", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("12345678"))
	assert.NoError(t, ValidatePassword(strings.Repeat("a", 50)))
	assert.Error(t, ValidatePassword("1234567"))
	assert.Error(t, ValidatePassword(strings.Repeat("a", 51)))

	// 30 Hangul syllables are 30 runes but 90 bytes
	assert.Error(t, ValidatePassword(strings.Repeat("가", 30)))
}

func TestValidateNickname(t *testing.T) {
	valid := []string{"hwayeon", "화연", "study_olle-1", "abc", strings.Repeat("a", 20)}
	for _, n := range valid {
		assert.NoError(t, ValidateNickname(n), n)
	}

	invalid := []string{"", "ab", "Hwayeon", "hwa yeon", "hwa!yeon", strings.Repeat("a", 21)}
	for _, n := range invalid {
		assert.Error(t, ValidateNickname(n), n)
	}
}

func TestNormalizeNickname(t *testing.T) {
	// "화" as a decomposed jamo sequence
	decomposed := "\u1112\u116a"
	assert.Equal(t, "화", NormalizeNickname("  "+decomposed+"  "))
	assert.NoError(t, ValidateNickname(NormalizeNickname(decomposed+"연이")))
}

func TestValidateMaxLength(t *testing.T) {
	assert.NoError(t, ValidateMaxLength("짧은 소개", BioMaxLength))
	assert.NoError(t, ValidateMaxLength(strings.Repeat("가", 35), BioMaxLength))
	assert.Error(t, ValidateMaxLength(strings.Repeat("가", 36), BioMaxLength))
	assert.NoError(t, ValidateMaxLength("", URLMaxLength))
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDecodeDataURL(t *testing.T) {
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)

	data, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	_, err = DecodeDataURL("https://example.com/a.png")
	assert.ErrorIs(t, err, ErrNotDataURL)

	_, err = DecodeDataURL("data:image/png,rawbytes")
	assert.ErrorIs(t, err, ErrNotDataURL)

	_, err = DecodeDataURL("data:image/png;base64,***")
	assert.Error(t, err)
}

func TestValidateImage(t *testing.T) {
	mime, ext, err := ValidateImage(pngHeader, ProfileImageConstraints)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, ".png", ext)

	_, _, err = ValidateImage(nil, ProfileImageConstraints)
	assert.Error(t, err)

	_, _, err = ValidateImage([]byte("<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>"), ProfileImageConstraints)
	assert.Error(t, err)

	small := ImageConstraints{AllowedMimeTypes: ProfileImageConstraints.AllowedMimeTypes, MaxSize: 4}
	_, _, err = ValidateImage(pngHeader, small)
	assert.Error(t, err)
}
