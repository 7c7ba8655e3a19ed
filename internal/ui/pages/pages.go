package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/studyolle/studyolle/internal/ctxkeys"
	"github.com/studyolle/studyolle/internal/form"
	"github.com/studyolle/studyolle/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// View is the data every page template receives.
type View struct {
	Title   string
	Flash   string
	Form    any
	Errors  form.Errors
	Data    any
	Section string // active settings tab

	// Filled from the request context at render time
	AppName   string
	Account   *model.Account
	CSRFToken string
	Nonce     string
	Path      string
}

var funcs = template.FuncMap{
	// imageURL lets avatar data URLs and storage URLs through html/template's
	// URL sanitizer, and nothing else.
	"imageURL": func(s string) template.URL {
		if strings.HasPrefix(s, "data:image/") || strings.HasPrefix(s, "https://") ||
			strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "/") {
			return template.URL(s)
		}
		return ""
	},
}

var templates = map[string]*template.Template{}

func init() {
	names := []string{
		"home", "not_found", "error",
		"sign_up", "check_email", "checked_email", "login",
		"profile",
		"settings_profile", "settings_password", "settings_notifications", "settings_account",
	}
	for _, name := range names {
		templates[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		))
	}
}

// page renders the named template inside the shared layout.
func page(name string, v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := templates[name]
		if !ok {
			return fmt.Errorf("unknown page %q", name)
		}

		if cfg := ctxkeys.Config(ctx); cfg != nil {
			v.AppName = cfg.AppName
		}
		v.Account = ctxkeys.Account(ctx)
		v.CSRFToken = ctxkeys.CSRFToken(ctx)
		v.Nonce = templ.GetNonce(ctx)
		v.Path = ctxkeys.URLPath(ctx)
		if v.Errors == nil {
			v.Errors = form.Errors{}
		}

		return t.ExecuteTemplate(w, "layout", v)
	})
}

func Home() templ.Component {
	return page("home", View{Title: "Home"})
}

func NotFound() templ.Component {
	return page("not_found", View{Title: "페이지를 찾을 수 없습니다"})
}

func Error(message string) templ.Component {
	return page("error", View{Title: "오류", Data: message})
}

func SignUp(f form.SignUpForm, errs form.Errors) templ.Component {
	// Never echo the password back
	f.Password = ""
	return page("sign_up", View{Title: "회원 가입", Form: f, Errors: errs})
}

type CheckEmailData struct {
	Email string
	Sent  bool
}

func CheckEmail(data CheckEmailData, errs form.Errors) templ.Component {
	return page("check_email", View{Title: "이메일 인증", Data: data, Errors: errs})
}

type CheckedEmailData struct {
	Nickname      string
	NumberOfUsers int
	Error         string
}

func CheckedEmail(data CheckedEmailData) templ.Component {
	return page("checked_email", View{Title: "이메일 확인", Data: data})
}

type LoginData struct {
	Error string
}

func Login(f form.LoginForm, errs form.Errors, data LoginData) templ.Component {
	f.Password = ""
	return page("login", View{Title: "로그인", Form: f, Errors: errs, Data: data})
}

type EmailLoginData struct {
	Email string
}

func EmailLogin(email string, errs form.Errors) templ.Component {
	return page("email_login", View{Title: "이메일로 로그인", Data: EmailLoginData{Email: email}, Errors: errs})
}

func CheckEmailLogin(email string) templ.Component {
	return page("check_email_login", View{Title: "이메일 로그인", Data: EmailLoginData{Email: email}})
}

type LoggedInByEmailData struct {
	Error string
}

func LoggedInByEmail(errMsg string) templ.Component {
	return page("logged_in_by_email", View{Title: "이메일 로그인", Data: LoggedInByEmailData{Error: errMsg}})
}

type ProfileData struct {
	Member  *model.Account
	IsOwner bool
}

func Profile(data ProfileData, flash string) templ.Component {
	return page("profile", View{Title: data.Member.Nickname, Data: data, Flash: flash})
}

func SettingsProfile(f form.ProfileForm, errs form.Errors, flash string) templ.Component {
	return page("settings_profile", View{Title: "프로필 수정", Form: f, Errors: errs, Flash: flash, Section: "profile"})
}

func SettingsPassword(errs form.Errors, flash string) templ.Component {
	return page("settings_password", View{Title: "패스워드 변경", Form: form.PasswordForm{}, Errors: errs, Flash: flash, Section: "password"})
}

func SettingsNotifications(f form.NotificationsForm, errs form.Errors, flash string) templ.Component {
	return page("settings_notifications", View{Title: "알림 설정", Form: f, Errors: errs, Flash: flash, Section: "notifications"})
}

func SettingsAccount(f form.NicknameForm, errs form.Errors, flash string) templ.Component {
	return page("settings_account", View{Title: "계정 설정", Form: f, Errors: errs, Flash: flash, Section: "account"})
}
