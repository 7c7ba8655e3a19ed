package model

import (
	"crypto/subtle"
	"time"
)

type Account struct {
	ID                         string     `db:"id"`
	Email                      string     `db:"email"`
	Nickname                   string     `db:"nickname"`
	Password                   string     `db:"password"` // bcrypt hash, never plaintext
	EmailVerified              bool       `db:"email_verified"`
	EmailCheckToken            *string    `db:"email_check_token"`
	EmailCheckTokenGeneratedAt *time.Time `db:"email_check_token_generated_at"`
	JoinedAt                   *time.Time `db:"joined_at"`
	CreatedAt                  time.Time  `db:"created_at"`

	Profile
	Notifications

	// Computed fields (not in database)
	AvatarURL string `db:"-"`
}

// Profile holds the publicly visible, user-editable fields of an account.
// A nil pointer means the field was never set.
type Profile struct {
	Bio          *string `db:"bio"`
	URL          *string `db:"url"`
	Occupation   *string `db:"occupation"`
	Location     *string `db:"location"`
	ProfileImage *string `db:"profile_image"`
}

// Notifications are the per-event delivery preferences, one flag per channel.
type Notifications struct {
	StudyCreatedByEmail          bool `db:"study_created_by_email"`
	StudyCreatedByWeb            bool `db:"study_created_by_web"`
	StudyEnrollmentResultByEmail bool `db:"study_enrollment_result_by_email"`
	StudyEnrollmentResultByWeb   bool `db:"study_enrollment_result_by_web"`
	StudyUpdatedByEmail          bool `db:"study_updated_by_email"`
	StudyUpdatedByWeb            bool `db:"study_updated_by_web"`
}

// DefaultNotifications returns the preferences a new account starts with:
// web delivery on, email delivery off.
func DefaultNotifications() Notifications {
	return Notifications{
		StudyCreatedByWeb:          true,
		StudyEnrollmentResultByWeb: true,
		StudyUpdatedByWeb:          true,
	}
}

func (a *Account) IssueEmailCheckToken(token string, now time.Time) {
	a.EmailCheckToken = &token
	a.EmailCheckTokenGeneratedAt = &now
}

// IsValidEmailCheckToken reports whether token matches the pending verification token.
func (a *Account) IsValidEmailCheckToken(token string) bool {
	if a.EmailCheckToken == nil || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*a.EmailCheckToken), []byte(token)) == 1
}

// CompleteSignUp marks the account verified and retires the pending token.
func (a *Account) CompleteSignUp(now time.Time) {
	a.EmailVerified = true
	a.JoinedAt = &now
	a.EmailCheckToken = nil
}

// CanSendConfirmEmail reports whether enough time has passed since the last
// verification token was issued.
func (a *Account) CanSendConfirmEmail(now time.Time, interval time.Duration) bool {
	if a.EmailCheckTokenGeneratedAt == nil {
		return true
	}
	return !a.EmailCheckTokenGeneratedAt.Add(interval).After(now)
}

func (p Profile) BioValue() string          { return deref(p.Bio) }
func (p Profile) URLValue() string          { return deref(p.URL) }
func (p Profile) OccupationValue() string   { return deref(p.Occupation) }
func (p Profile) LocationValue() string     { return deref(p.Location) }
func (p Profile) ProfileImageValue() string { return deref(p.ProfileImage) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
