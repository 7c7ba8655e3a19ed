package form

import (
	"net/http"
	"strings"

	"github.com/studyolle/studyolle/internal/service"
)

// LoginForm accepts either an email or a nickname as username.
type LoginForm struct {
	Username   string
	Password   string
	RememberMe bool
}

func LoginFormFrom(r *http.Request) LoginForm {
	return LoginForm{
		Username:   strings.TrimSpace(r.PostFormValue("username")),
		Password:   r.PostFormValue("password"),
		RememberMe: checked(r, service.RememberMeParam),
	}
}

func (f LoginForm) Validate() Errors {
	errs := Errors{}
	if f.Username == "" {
		errs.Add("username", "이메일 또는 닉네임을 입력하세요.")
	}
	if f.Password == "" {
		errs.Add("password", "패스워드를 입력하세요.")
	}
	return errs
}
