package form

import (
	"context"
	"fmt"
	"net/http"

	"github.com/studyolle/studyolle/internal/service"
	"github.com/studyolle/studyolle/internal/validation"
)

// UniquenessChecker answers whether an identity key is already taken.
type UniquenessChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
}

type SignUpForm struct {
	Nickname string
	Email    string
	Password string
}

func SignUpFormFrom(r *http.Request) SignUpForm {
	return SignUpForm{
		Nickname: validation.NormalizeNickname(r.PostFormValue("nickname")),
		Email:    service.NormalizeEmail(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

// Validate checks syntax first and uniqueness only for syntactically valid
// fields. The returned error is a lookup failure, not a validation failure.
func (f SignUpForm) Validate(ctx context.Context, checker UniquenessChecker) (Errors, error) {
	errs := Errors{}

	if err := validation.ValidateNickname(f.Nickname); err != nil {
		errs.Add("nickname", err.Error())
	}
	if err := validation.ValidateEmail(f.Email); err != nil {
		errs.Add("email", err.Error())
	}
	if err := validation.ValidatePassword(f.Password); err != nil {
		errs.Add("password", err.Error())
	}

	if !errs.Has("email") {
		exists, err := checker.EmailExists(ctx, f.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			errs.Add("email", "이미 사용중인 이메일입니다.")
		}
	}
	if !errs.Has("nickname") {
		exists, err := checker.NicknameExists(ctx, f.Nickname)
		if err != nil {
			return nil, fmt.Errorf("failed to check nickname: %w", err)
		}
		if exists {
			errs.Add("nickname", "이미 사용중인 닉네임입니다.")
		}
	}

	return errs, nil
}

func (f SignUpForm) ToRequest() service.SignUpRequest {
	return service.SignUpRequest{
		Email:    f.Email,
		Nickname: f.Nickname,
		Password: f.Password,
	}
}
