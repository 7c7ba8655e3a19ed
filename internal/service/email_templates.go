package service

import (
	"net/url"
)

const (
	confirmEmailSubject = "스터디올래, 회원가입 인증"
	loginLinkSubject    = "스터디올래, 로그인 링크"
)

// CheckEmailTokenPath builds the relative verification link sent to new members.
func CheckEmailTokenPath(token, email string) string {
	return "/check-email-token?token=" + url.QueryEscape(token) + "&email=" + url.QueryEscape(email)
}

// LoginByEmailPath builds the relative one-time login link.
func LoginByEmailPath(token, email string) string {
	return "/login-by-email?token=" + url.QueryEscape(token) + "&email=" + url.QueryEscape(email)
}

// confirmEmailTemplate returns the subject and plain text body of the
// verification message. The body is the bare verification path.
func confirmEmailTemplate(token, email string) (string, string) {
	return confirmEmailSubject, CheckEmailTokenPath(token, email)
}

func loginLinkTemplate(token, email string) (string, string) {
	return loginLinkSubject, LoginByEmailPath(token, email)
}
