package validation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ImageConstraints defines validation rules for profile images
type ImageConstraints struct {
	AllowedMimeTypes map[string]string // detected mime type -> file extension
	MaxSize          int
}

var ProfileImageConstraints = ImageConstraints{
	AllowedMimeTypes: map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	},
	MaxSize: 5 << 20, // 5MB
}

var ErrNotDataURL = errors.New("not a base64 data URL")

// DecodeDataURL decodes a "data:<mime>;base64,<payload>" URL as produced by
// canvas.toDataURL in the browser.
func DecodeDataURL(s string) ([]byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrNotDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid image encoding: %w", err)
	}
	return data, nil
}

// ValidateImage checks the size and the sniffed content type of data, which
// cannot be faked by a declared mime type. It returns the detected type and
// its file extension.
func ValidateImage(data []byte, c ImageConstraints) (string, string, error) {
	if len(data) == 0 {
		return "", "", errors.New("이미지가 비어 있습니다.")
	}
	if len(data) > c.MaxSize {
		return "", "", fmt.Errorf("이미지는 최대 %dMB까지 올릴 수 있습니다.", c.MaxSize>>20)
	}

	detected := http.DetectContentType(data)
	ext, ok := c.AllowedMimeTypes[detected]
	if !ok {
		return "", "", fmt.Errorf("지원하지 않는 이미지 형식입니다. (%s)", detected)
	}
	return detected, ext, nil
}
