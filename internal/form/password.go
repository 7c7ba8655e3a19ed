package form

import (
	"net/http"

	"github.com/studyolle/studyolle/internal/validation"
)

type PasswordForm struct {
	NewPassword        string
	NewPasswordConfirm string
}

func PasswordFormFrom(r *http.Request) PasswordForm {
	return PasswordForm{
		NewPassword:        r.PostFormValue("newPassword"),
		NewPasswordConfirm: r.PostFormValue("newPasswordConfirm"),
	}
}

func (f PasswordForm) Validate() Errors {
	errs := Errors{}
	if err := validation.ValidatePassword(f.NewPassword); err != nil {
		errs.Add("newPassword", err.Error())
	}
	if err := validation.ValidatePassword(f.NewPasswordConfirm); err != nil {
		errs.Add("newPasswordConfirm", err.Error())
	}
	if f.NewPassword != f.NewPasswordConfirm {
		errs.Add("newPassword", "입력한 새 패스워드가 일치하지 않습니다.")
	}
	return errs
}
