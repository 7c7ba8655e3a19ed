package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/studyolle/studyolle/internal/ctxkeys"
	"github.com/studyolle/studyolle/internal/form"
	"github.com/studyolle/studyolle/internal/repository"
	"github.com/studyolle/studyolle/internal/service"
	"github.com/studyolle/studyolle/internal/ui"
	"github.com/studyolle/studyolle/internal/ui/pages"
	"github.com/studyolle/studyolle/internal/validation"
)

const (
	msgWrongCredentials = "이메일(닉네임) 또는 패스워드가 정확하지 않습니다."
	msgNotVerified      = "이메일 인증을 완료해야 로그인할 수 있습니다."
	msgWrongEmailLink   = "이메일 확인 링크가 정확하지 않습니다."
	msgWrongLoginLink   = "로그인할 수 없습니다."
)

// AuthHandler serves sign-up, email verification, password and email login, and logout.
type AuthHandler struct {
	accounts *service.AccountService
	remember *service.RememberMeService
}

func NewAuthHandler(accounts *service.AccountService, remember *service.RememberMeService) *AuthHandler {
	return &AuthHandler{accounts: accounts, remember: remember}
}

func (h *AuthHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.SignUp(form.SignUpForm{}, nil))
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	f := form.SignUpFormFrom(r)

	errs, err := f.Validate(r.Context(), h.accounts)
	if err != nil {
		serverError(w, r, "sign-up validation failed", err)
		return
	}
	if errs.Any() {
		ui.Render(w, r, pages.SignUp(f, errs))
		return
	}

	_, err = h.accounts.CreateAccount(r.Context(), f.ToRequest())
	if errors.Is(err, service.ErrConfirmEmailNotSent) {
		// The account exists; the check-email page offers a resend
		slog.Error("confirm email not sent after sign-up", "email", f.Email, "error", err)
	} else if err != nil {
		// Lost a race with a concurrent sign-up for the same key
		if errors.Is(err, repository.ErrDuplicateEmail) {
			errs.Add("email", "이미 사용중인 이메일입니다.")
			ui.Render(w, r, pages.SignUp(f, errs))
			return
		}
		if errors.Is(err, repository.ErrDuplicateNickname) {
			errs.Add("nickname", "이미 사용중인 닉네임입니다.")
			ui.Render(w, r, pages.SignUp(f, errs))
			return
		}
		serverError(w, r, "sign-up failed", err, "email", f.Email)
		return
	}

	http.Redirect(w, r, "/check-email?email="+url.QueryEscape(f.Email), http.StatusSeeOther)
}

func (h *AuthHandler) CheckEmailPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ui.Render(w, r, pages.CheckEmail(pages.CheckEmailData{
		Email: q.Get("email"),
		Sent:  q.Get("sent") == "1",
	}, nil))
}

// ResendConfirmEmail answers the same way for unknown, verified, throttled and
// fresh addresses so the form does not reveal which accounts exist.
func (h *AuthHandler) ResendConfirmEmail(w http.ResponseWriter, r *http.Request) {
	email := service.NormalizeEmail(r.PostFormValue("email"))

	err := validation.ValidateEmail(email)
	if err != nil {
		errs := form.Errors{}
		errs.Add("email", err.Error())
		ui.Render(w, r, pages.CheckEmail(pages.CheckEmailData{Email: email}, errs))
		return
	}

	err = h.accounts.ResendConfirmEmail(r.Context(), email)
	if errors.Is(err, service.ErrConfirmEmailTooSoon) {
		slog.Info("confirm email throttled")
	} else if err != nil {
		serverError(w, r, "resend confirm email failed", err)
		return
	}

	http.Redirect(w, r, "/check-email?sent=1&email="+url.QueryEscape(email), http.StatusSeeOther)
}

// CheckEmailToken is the target of the verification link. A valid link
// verifies the account and signs it in.
func (h *AuthHandler) CheckEmailToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	email := q.Get("email")

	account, err := h.accounts.ByEmail(r.Context(), email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		ui.Render(w, r, pages.CheckedEmail(pages.CheckedEmailData{Error: msgWrongEmailLink}))
		return
	}
	if err != nil {
		serverError(w, r, "failed to load account for verification", err)
		return
	}

	err = h.accounts.VerifyEmail(r.Context(), account, token)
	if errors.Is(err, service.ErrInvalidEmailToken) {
		ui.Render(w, r, pages.CheckedEmail(pages.CheckedEmailData{Error: msgWrongEmailLink}))
		return
	}
	if err != nil {
		serverError(w, r, "email verification failed", err, "account_id", account.ID)
		return
	}

	_, err = h.accounts.CompleteSignUp(r.Context(), w, account)
	if err != nil {
		serverError(w, r, "failed to sign in verified account", err, "account_id", account.ID)
		return
	}

	count, err := h.accounts.Count(r.Context())
	if err != nil {
		serverError(w, r, "failed to count accounts", err)
		return
	}

	account.Password = ""
	ctx := ctxkeys.WithAccount(r.Context(), account)
	ui.Render(w, r.WithContext(ctx), pages.CheckedEmail(pages.CheckedEmailData{
		Nickname:      account.Nickname,
		NumberOfUsers: count,
	}))
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Login(form.LoginForm{}, nil, pages.LoginData{}))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	f := form.LoginFormFrom(r)

	errs := f.Validate()
	if errs.Any() {
		ui.Render(w, r, pages.Login(f, errs, pages.LoginData{}))
		return
	}

	account, err := h.accounts.Login(r.Context(), f.Username, f.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		slog.Info("login rejected", "username", f.Username)
		ui.Render(w, r, pages.Login(f, nil, pages.LoginData{Error: msgWrongCredentials}))
		return
	}
	if errors.Is(err, service.ErrEmailNotVerified) {
		ui.Render(w, r, pages.Login(f, nil, pages.LoginData{Error: msgNotVerified}))
		return
	}
	if err != nil {
		serverError(w, r, "login failed", err)
		return
	}

	_, err = h.accounts.EstablishSession(w, account)
	if err != nil {
		serverError(w, r, "failed to establish session", err, "account_id", account.ID)
		return
	}

	if f.RememberMe {
		err = h.remember.Remember(r.Context(), w, account.Email)
		if err != nil {
			// The session alone still signs the user in
			slog.Error("failed to remember login", "account_id", account.ID, "error", err)
		}
	}

	slog.Info("login", "account_id", account.ID, "remember_me", f.RememberMe)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the session and revokes every remembered login of the account.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.accounts.Logout(w)

	if account := ctxkeys.Account(r.Context()); account != nil {
		err := h.remember.Forget(r.Context(), w, account.Email)
		if err != nil {
			slog.Error("failed to forget remembered logins", "account_id", account.ID, "error", err)
		}
	} else {
		h.remember.ClearCookie(w)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) EmailLoginPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.EmailLogin("", nil))
}

// SendLoginLink answers the same way whether or not a link was sent.
func (h *AuthHandler) SendLoginLink(w http.ResponseWriter, r *http.Request) {
	email := service.NormalizeEmail(r.PostFormValue("email"))

	err := validation.ValidateEmail(email)
	if err != nil {
		errs := form.Errors{}
		errs.Add("email", err.Error())
		ui.Render(w, r, pages.EmailLogin(email, errs))
		return
	}

	err = h.accounts.SendLoginLink(r.Context(), email)
	if errors.Is(err, service.ErrConfirmEmailTooSoon) {
		slog.Info("login link throttled")
	} else if err != nil {
		serverError(w, r, "send login link failed", err)
		return
	}

	http.Redirect(w, r, "/check-email-login?email="+url.QueryEscape(email), http.StatusSeeOther)
}

func (h *AuthHandler) CheckEmailLoginPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.CheckEmailLogin(r.URL.Query().Get("email")))
}

// LoginByEmail is the target of the emailed login link.
func (h *AuthHandler) LoginByEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	account, err := h.accounts.LoginByEmail(r.Context(), w, q.Get("email"), q.Get("token"))
	if errors.Is(err, service.ErrInvalidLoginLink) {
		ui.Render(w, r, pages.LoggedInByEmail(msgWrongLoginLink))
		return
	}
	if err != nil {
		serverError(w, r, "login by email failed", err)
		return
	}

	account.Password = ""
	ctx := ctxkeys.WithAccount(r.Context(), account)
	ui.Render(w, r.WithContext(ctx), pages.LoggedInByEmail(""))
}
