package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studyolle/studyolle/internal/app"
	"github.com/studyolle/studyolle/internal/config"
	"github.com/studyolle/studyolle/internal/middleware"
	"github.com/studyolle/studyolle/internal/model"
	"github.com/studyolle/studyolle/internal/service"
	"golang.org/x/crypto/bcrypt"
)

var testCSRFToken = strings.Repeat("c", 43)

type client struct {
	t       *testing.T
	app     *app.App
	handler http.Handler
	cookies map[string]*http.Cookie
	ip      string
	seq     int
}

func newClient(t *testing.T, opts ...func(*config.Config)) *client {
	t.Helper()

	cfg := &config.Config{
		AppName:                    "StudyOlle",
		AppEnv:                     "development",
		AppURL:                     "http://localhost:8080",
		Port:                       "8080",
		DBDriver:                   "sqlite",
		DBConnection:               filepath.Join(t.TempDir(), "studyolle.db"),
		JWTSecret:                  "test-secret",
		SessionExpiry:              time.Hour,
		RememberMeValidity:         24 * time.Hour,
		BcryptCost:                 bcrypt.MinCost,
		ConfirmEmailResendInterval: time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	a, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return &client{
		t:       t,
		app:     a,
		handler: SetupRoutes(a),
		cookies: map[string]*http.Cookie{},
	}
}

// do sends a request carrying the client's cookies. Unless the client has a
// fixed IP, every request comes from a fresh address to stay clear of the
// auth rate limit.
func (c *client) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()

	var req *http.Request
	if method == http.MethodPost {
		if form == nil {
			form = url.Values{}
		}
		if _, ok := form[middleware.CSRFFormField]; !ok {
			form.Set(middleware.CSRFFormField, testCSRFToken)
		}
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: testCSRFToken})
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	ip := c.ip
	if ip == "" {
		c.seq++
		ip = fmt.Sprintf("192.0.2.%d", c.seq)
	}
	req.Header.Set("X-Real-IP", ip)

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return rec
}

func (c *client) account(email string) *model.Account {
	c.t.Helper()
	account, err := c.app.AccountService.ByEmail(context.Background(), email)
	require.NoError(c.t, err)
	return account
}

func (c *client) signUp(email, nickname, password string) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, "/sign-up", url.Values{
		"email":    {email},
		"nickname": {nickname},
		"password": {password},
	})
}

// signUpAndVerify runs the sign-up and email link flow and leaves the client signed in.
func (c *client) signUpAndVerify(email, nickname, password string) *model.Account {
	c.t.Helper()

	rec := c.signUp(email, nickname, password)
	require.Equal(c.t, http.StatusSeeOther, rec.Code)

	account := c.account(email)
	require.NotNil(c.t, account.EmailCheckToken)

	rec = c.do(http.MethodGet, service.CheckEmailTokenPath(*account.EmailCheckToken, email), nil)
	require.Equal(c.t, http.StatusOK, rec.Code)
	require.Contains(c.t, c.cookies, service.SessionCookieName)

	return c.account(email)
}

func TestSignUp(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodGet, "/sign-up", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="nickname"`)

	t.Run("invalid input re-renders the form", func(t *testing.T) {
		rec := c.signUp("hwayeon-email", "hw", "1234")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "올바른 이메일 형식이 아닙니다.")

		_, err := c.app.AccountService.ByEmail(context.Background(), "hwayeon-email")
		assert.Error(t, err)
	})

	t.Run("valid input creates an unverified account", func(t *testing.T) {
		rec := c.signUp("hwayeon@example.com", "hwayeon", "12345678")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/check-email?email=hwayeon%40example.com", rec.Header().Get("Location"))
		assert.NotContains(t, c.cookies, service.SessionCookieName, "sign-up alone does not sign in")

		account := c.account("hwayeon@example.com")
		assert.Equal(t, "hwayeon", account.Nickname)
		assert.NotEqual(t, "12345678", account.Password)
		assert.False(t, account.EmailVerified)
		assert.NotNil(t, account.EmailCheckToken)
	})

	t.Run("taken nickname", func(t *testing.T) {
		rec := c.signUp("other@example.com", "hwayeon", "12345678")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "이미 사용중인 닉네임입니다.")
	})
}

func TestCheckEmailToken(t *testing.T) {
	c := newClient(t)
	require.Equal(t, http.StatusSeeOther, c.signUp("hwayeon@example.com", "hwayeon", "12345678").Code)
	account := c.account("hwayeon@example.com")

	t.Run("wrong token", func(t *testing.T) {
		rec := c.do(http.MethodGet, service.CheckEmailTokenPath("wrong", "hwayeon@example.com"), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "이메일 확인 링크가 정확하지 않습니다.")
		assert.NotContains(t, c.cookies, service.SessionCookieName)
		assert.False(t, c.account("hwayeon@example.com").EmailVerified)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := c.do(http.MethodGet, service.CheckEmailTokenPath(*account.EmailCheckToken, "nobody@example.com"), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "이메일 확인 링크가 정확하지 않습니다.")
	})

	t.Run("valid token verifies and signs in", func(t *testing.T) {
		rec := c.do(http.MethodGet, service.CheckEmailTokenPath(*account.EmailCheckToken, "hwayeon@example.com"), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "hwayeon")
		assert.Contains(t, rec.Body.String(), "1번째")
		assert.Contains(t, c.cookies, service.SessionCookieName)

		verified := c.account("hwayeon@example.com")
		assert.True(t, verified.EmailVerified)
		assert.NotNil(t, verified.JoinedAt)
		assert.Nil(t, verified.EmailCheckToken)
	})
}

func TestResendConfirmEmail(t *testing.T) {
	c := newClient(t)
	require.Equal(t, http.StatusSeeOther, c.signUp("hwayeon@example.com", "hwayeon", "12345678").Code)

	for _, email := range []string{"hwayeon@example.com", "nobody@example.com"} {
		rec := c.do(http.MethodPost, "/resend-confirm-email", url.Values{"email": {email}})
		assert.Equal(t, http.StatusSeeOther, rec.Code, email)
		assert.Equal(t, "/check-email?sent=1&email="+url.QueryEscape(email), rec.Header().Get("Location"))
	}

	rec := c.do(http.MethodPost, "/resend-confirm-email", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "올바른 이메일 형식이 아닙니다.")
}

func TestLoginLogout(t *testing.T) {
	c := newClient(t)
	require.Equal(t, http.StatusSeeOther, c.signUp("pending@example.com", "pending", "12345678").Code)
	c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")

	rec := c.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, c.cookies, service.SessionCookieName)

	rec = c.do(http.MethodPost, "/login", url.Values{"username": {"hwayeon"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "패스워드가 정확하지 않습니다.")
	assert.NotContains(t, c.cookies, service.SessionCookieName)

	rec = c.do(http.MethodPost, "/login", url.Values{"username": {"pending"}, "password": {"12345678"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "이메일 인증을 완료해야")

	for _, username := range []string{"hwayeon", "hwayeon@example.com"} {
		c.do(http.MethodPost, "/logout", nil)
		rec = c.do(http.MethodPost, "/login", url.Values{"username": {username}, "password": {"12345678"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code, username)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		assert.Contains(t, c.cookies, service.SessionCookieName)
	}

	rec = c.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code, "signed-in users skip the login page")
}

func TestLogin_RememberMe(t *testing.T) {
	c := newClient(t)
	c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")
	c.do(http.MethodPost, "/logout", nil)

	rec := c.do(http.MethodGet, "/login", nil)
	assert.Contains(t, rec.Body.String(), `name="remember-me"`)

	rec = c.do(http.MethodPost, "/login", url.Values{"username": {"hwayeon"}, "password": {"12345678"}, "remember-me": {"on"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, c.cookies, service.RememberMeCookieName)
	first := c.cookies[service.RememberMeCookieName].Value

	// The browser was closed and the session cookie is gone
	delete(c.cookies, service.SessionCookieName)

	rec = c.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hwayeon님, 반갑습니다.")
	assert.Contains(t, c.cookies, service.SessionCookieName)
	require.Contains(t, c.cookies, service.RememberMeCookieName)
	assert.NotEqual(t, first, c.cookies[service.RememberMeCookieName].Value)
	rotated := c.cookies[service.RememberMeCookieName].Value

	rec = c.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, c.cookies, service.SessionCookieName)
	assert.NotContains(t, c.cookies, service.RememberMeCookieName)

	// Logging out revokes the remembered login server-side too
	c.cookies[service.RememberMeCookieName] = &http.Cookie{Name: service.RememberMeCookieName, Value: rotated}
	rec = c.do(http.MethodGet, "/", nil)
	assert.NotContains(t, rec.Body.String(), "hwayeon님, 반갑습니다.")
	assert.NotContains(t, c.cookies, service.SessionCookieName)
	assert.NotContains(t, c.cookies, service.RememberMeCookieName)
}

func TestLogin_WithoutRememberMe(t *testing.T) {
	c := newClient(t)
	c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")
	c.do(http.MethodPost, "/logout", nil)

	rec := c.do(http.MethodPost, "/login", url.Values{"username": {"hwayeon"}, "password": {"12345678"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, c.cookies, service.RememberMeCookieName)
}

func TestEmailLogin(t *testing.T) {
	c := newClient(t, func(cfg *config.Config) { cfg.ConfirmEmailResendInterval = 0 })
	c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")
	c.do(http.MethodPost, "/logout", nil)

	rec := c.do(http.MethodGet, "/email-login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="email"`)

	rec = c.do(http.MethodPost, "/email-login", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "올바른 이메일 형식이 아닙니다.")

	for _, email := range []string{"nobody@example.com", "hwayeon@example.com"} {
		rec = c.do(http.MethodPost, "/email-login", url.Values{"email": {email}})
		assert.Equal(t, http.StatusSeeOther, rec.Code, email)
		assert.Equal(t, "/check-email-login?email="+url.QueryEscape(email), rec.Header().Get("Location"))
	}

	account := c.account("hwayeon@example.com")
	require.NotNil(t, account.EmailCheckToken)
	link := service.LoginByEmailPath(*account.EmailCheckToken, "hwayeon@example.com")

	rec = c.do(http.MethodGet, service.LoginByEmailPath("wrong", "hwayeon@example.com"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "로그인할 수 없습니다.")
	assert.NotContains(t, c.cookies, service.SessionCookieName)

	rec = c.do(http.MethodGet, link, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "로그인할 수 없습니다.")
	assert.Contains(t, c.cookies, service.SessionCookieName)

	rec = c.do(http.MethodGet, "/email-login", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code, "signed-in users skip the email login page")

	c.do(http.MethodPost, "/logout", nil)
	rec = c.do(http.MethodGet, link, nil)
	assert.Contains(t, rec.Body.String(), "로그인할 수 없습니다.", "each link works once")
	assert.NotContains(t, c.cookies, service.SessionCookieName)
}

func TestLogin_RateLimited(t *testing.T) {
	c := newClient(t)
	c.ip = "198.51.100.23"

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		rec := c.do(http.MethodPost, "/login", url.Values{"username": {"nobody"}, "password": {"12345678"}})
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{200, 200, 200, 200, 200, http.StatusTooManyRequests}, codes)
}

func TestCSRFRequired(t *testing.T) {
	c := newClient(t)
	rec := c.do(http.MethodPost, "/login", url.Values{
		"username":                {"hwayeon"},
		"password":                {"12345678"},
		middleware.CSRFFormField: {"forged"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSettingsRequireAuth(t *testing.T) {
	c := newClient(t)
	for _, path := range []string{"/settings/profile", "/settings/password", "/settings/notifications", "/settings/account"} {
		rec := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestSettingsProfile(t *testing.T) {
	c := newClient(t)
	c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")

	rec := c.do(http.MethodGet, "/settings/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="bio"`)

	t.Run("update", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/settings/profile", url.Values{"bio": {"짧은 소개"}, "location": {"서울"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/settings/profile", rec.Header().Get("Location"))

		account := c.account("hwayeon@example.com")
		assert.Equal(t, "짧은 소개", account.BioValue())
		assert.Equal(t, "서울", account.LocationValue())
		assert.Nil(t, account.URL)

		rec = c.do(http.MethodGet, "/settings/profile", nil)
		assert.Contains(t, rec.Body.String(), "프로필을 수정했습니다.")

		rec = c.do(http.MethodGet, "/settings/profile", nil)
		assert.NotContains(t, rec.Body.String(), "프로필을 수정했습니다.", "flash shows once")
	})

	t.Run("bio too long", func(t *testing.T) {
		long := "너무나도 길게 소개를 수정하는 경우. 너무나도 길게 소개를 수정하는 경우. 너무나도 길게 소개를 수정하는 경우."
		rec := c.do(http.MethodPost, "/settings/profile", url.Values{"bio": {long}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "35자 이내로 입력하세요.")
		assert.Equal(t, "짧은 소개", c.account("hwayeon@example.com").BioValue())
	})

	t.Run("invalid image", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/settings/profile", url.Values{"profileImage": {"data:text/plain;base64,aGVsbG8="}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, c.account("hwayeon@example.com").ProfileImage)
	})

	t.Run("inline image without storage", func(t *testing.T) {
		png := "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="
		rec := c.do(http.MethodPost, "/settings/profile", url.Values{"profileImage": {png}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, png, c.account("hwayeon@example.com").ProfileImageValue())
	})
}

func TestSettingsPassword(t *testing.T) {
	c := newClient(t)
	c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")

	rec := c.do(http.MethodPost, "/settings/password", url.Values{
		"newPassword":        {"111111111"},
		"newPasswordConfirm": {"111111112"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "입력한 새 패스워드가 일치하지 않습니다.")

	rec = c.do(http.MethodPost, "/settings/password", url.Values{
		"newPassword":        {"111111111"},
		"newPasswordConfirm": {"111111111"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = c.do(http.MethodGet, "/settings/password", nil)
	assert.Contains(t, rec.Body.String(), "패스워드를 변경했습니다.")

	_, err := c.app.AccountService.Login(context.Background(), "hwayeon", "111111111")
	assert.NoError(t, err)
	_, err = c.app.AccountService.Login(context.Background(), "hwayeon", "12345678")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestSettingsNotifications(t *testing.T) {
	c := newClient(t)
	account := c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")
	assert.Equal(t, model.DefaultNotifications(), account.Notifications)

	rec := c.do(http.MethodPost, "/settings/notifications", url.Values{
		"studyCreatedByEmail":        {"on"},
		"studyEnrollmentResultByWeb": {"on"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Equal(t, model.Notifications{
		StudyCreatedByEmail:        true,
		StudyEnrollmentResultByWeb: true,
	}, c.account("hwayeon@example.com").Notifications)
}

func TestSettingsAccount_ChangeNickname(t *testing.T) {
	c := newClient(t)
	c.signUpAndVerify("other@example.com", "taken", "12345678")
	c.do(http.MethodPost, "/logout", nil)
	c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")

	rec := c.do(http.MethodPost, "/settings/account", url.Values{"nickname": {"taken"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "입력하신 닉네임을 사용할 수 없습니다.")

	rec = c.do(http.MethodPost, "/settings/account", url.Values{"nickname": {"새이름"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "새이름", c.account("hwayeon@example.com").Nickname)

	rec = c.do(http.MethodGet, "/", nil)
	assert.Contains(t, rec.Body.String(), "새이름님")
}

func TestProfilePage(t *testing.T) {
	c := newClient(t)
	c.signUpAndVerify("hwayeon@example.com", "hwayeon", "12345678")
	c.do(http.MethodPost, "/settings/profile", url.Values{"bio": {"짧은 소개"}})

	rec := c.do(http.MethodGet, "/profile/hwayeon", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "짧은 소개")
	assert.Contains(t, rec.Body.String(), "프로필 수정")

	c.do(http.MethodPost, "/logout", nil)
	rec = c.do(http.MethodGet, "/profile/hwayeon", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "프로필 수정", "visitors cannot edit")

	rec = c.do(http.MethodGet, "/profile/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFoundAndHeaders(t *testing.T) {
	c := newClient(t)
	rec := c.do(http.MethodGet, "/no/such/page", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "'nonce-")

	rec = c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics disabled")
}
