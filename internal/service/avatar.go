package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studyolle/studyolle/internal/model"
	"github.com/studyolle/studyolle/internal/storage"
	"github.com/studyolle/studyolle/internal/validation"
)

const avatarKeyPrefix = "avatars/"

// ErrInvalidProfileImage wraps every rejection of the submitted image itself,
// as opposed to storage failures.
var ErrInvalidProfileImage = errors.New("invalid profile image")

// AvatarService turns submitted profile images into persisted values and back
// into URLs. Without storage, images are kept as the submitted data URL.
type AvatarService struct {
	storage storage.Storage
}

func NewAvatarService(storage storage.Storage) *AvatarService {
	return &AvatarService{storage: storage}
}

// Resolve returns the profile_image value to persist for submitted. An
// unchanged value is returned as is; a new data URL is validated and, when
// storage is configured, uploaded under a content-addressed key so repeating
// the same upload yields the same key.
func (s *AvatarService) Resolve(ctx context.Context, account *model.Account, submitted *string) (*string, error) {
	if submitted == nil || *submitted == "" {
		return nil, nil
	}
	if account.ProfileImage != nil && *account.ProfileImage == *submitted {
		return submitted, nil
	}

	data, err := validation.DecodeDataURL(*submitted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfileImage, err)
	}
	contentType, ext, err := validation.ValidateImage(data, validation.ProfileImageConstraints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfileImage, err)
	}

	if s.storage == nil {
		return submitted, nil
	}

	sum := sha256.Sum256(data)
	key := fmt.Sprintf("%s%s/%s%s", avatarKeyPrefix, account.ID, hex.EncodeToString(sum[:]), ext)

	err = s.storage.Save(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store profile image: %w", err)
	}
	return &key, nil
}

// Cleanup removes a previously stored image that is no longer referenced.
// Failures are logged only.
func (s *AvatarService) Cleanup(ctx context.Context, previous, current *string) {
	if s.storage == nil || previous == nil || !isStoredKey(*previous) {
		return
	}
	if current != nil && *current == *previous {
		return
	}

	err := s.storage.Delete(ctx, *previous)
	if err != nil {
		slog.Warn("failed to delete old profile image", "key", *previous, "error", err)
	}
}

// URL returns a loadable URL for a persisted profile_image value.
func (s *AvatarService) URL(value string) string {
	if s.storage != nil && isStoredKey(value) {
		return s.storage.URL(value)
	}
	return value
}

// Populate fills the computed AvatarURL of account.
func (s *AvatarService) Populate(account *model.Account) {
	if account == nil {
		return
	}
	account.AvatarURL = s.URL(account.ProfileImageValue())
}

func isStoredKey(value string) bool {
	return strings.HasPrefix(value, avatarKeyPrefix)
}
