package form

import (
	"context"
	"fmt"
	"net/http"

	"github.com/studyolle/studyolle/internal/validation"
)

type NicknameForm struct {
	Nickname string
}

func NicknameFormFrom(r *http.Request) NicknameForm {
	return NicknameForm{Nickname: validation.NormalizeNickname(r.PostFormValue("nickname"))}
}

func (f NicknameForm) Validate(ctx context.Context, checker UniquenessChecker) (Errors, error) {
	errs := Errors{}
	if err := validation.ValidateNickname(f.Nickname); err != nil {
		errs.Add("nickname", err.Error())
		return errs, nil
	}

	exists, err := checker.NicknameExists(ctx, f.Nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to check nickname: %w", err)
	}
	if exists {
		errs.Add("nickname", "입력하신 닉네임을 사용할 수 없습니다.")
	}
	return errs, nil
}
