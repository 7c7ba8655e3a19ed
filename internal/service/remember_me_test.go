package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studyolle/studyolle/internal/db"
	"github.com/studyolle/studyolle/internal/metrics"
	"github.com/studyolle/studyolle/internal/repository"
)

type rememberEnv struct {
	svc    *RememberMeService
	logins repository.PersistentLoginRepository
	clock  time.Time
}

func newRememberEnv(t *testing.T) *rememberEnv {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	env := &rememberEnv{
		logins: repository.NewPersistentLoginRepository(database),
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewRememberMeService(env.logins, 14*24*time.Hour, false)
	env.svc.now = func() time.Time { return env.clock }
	return env
}

func rememberCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == RememberMeCookieName {
			return c
		}
	}
	t.Fatal("no remember-me cookie set")
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r
}

func (e *rememberEnv) remember(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, e.svc.Remember(context.Background(), rec, username))
	return rememberCookie(t, rec)
}

func TestRemember_StoresHashedToken(t *testing.T) {
	env := newRememberEnv(t)

	cookie := env.remember(t, "hwayeon@example.com")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int((14 * 24 * time.Hour).Seconds()), cookie.MaxAge)

	series, token, ok := strings.Cut(cookie.Value, ":")
	require.True(t, ok)

	stored, err := env.logins.BySeries(context.Background(), series)
	require.NoError(t, err)
	assert.Equal(t, "hwayeon@example.com", stored.Username)
	assert.Equal(t, hashToken(token), stored.Token)
	assert.NotEqual(t, token, stored.Token)
}

func TestAutoLogin_RotatesToken(t *testing.T) {
	env := newRememberEnv(t)
	ctx := context.Background()
	first := env.remember(t, "hwayeon@example.com")
	before := testutil.ToFloat64(metrics.RememberMeLoginsTotal.WithLabelValues(metrics.ResultSuccess))

	env.clock = env.clock.Add(time.Hour)
	rec := httptest.NewRecorder()
	username, err := env.svc.AutoLogin(ctx, rec, requestWith(first))
	require.NoError(t, err)
	assert.Equal(t, "hwayeon@example.com", username)

	second := rememberCookie(t, rec)
	firstSeries, _, _ := strings.Cut(first.Value, ":")
	secondSeries, _, _ := strings.Cut(second.Value, ":")
	assert.Equal(t, firstSeries, secondSeries, "the series survives rotation")
	assert.NotEqual(t, first.Value, second.Value)

	stored, err := env.logins.BySeries(ctx, firstSeries)
	require.NoError(t, err)
	assert.WithinDuration(t, env.clock, stored.LastUsed, time.Second)

	username, err = env.svc.AutoLogin(ctx, httptest.NewRecorder(), requestWith(second))
	require.NoError(t, err)
	assert.Equal(t, "hwayeon@example.com", username)

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RememberMeLoginsTotal.WithLabelValues(metrics.ResultSuccess)))
}

func TestAutoLogin_ReusedTokenRevokesEverySeries(t *testing.T) {
	env := newRememberEnv(t)
	ctx := context.Background()
	stolen := env.remember(t, "hwayeon@example.com")
	laptop := env.remember(t, "hwayeon@example.com")
	other := env.remember(t, "other@example.com")

	_, err := env.svc.AutoLogin(ctx, httptest.NewRecorder(), requestWith(stolen))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = env.svc.AutoLogin(ctx, rec, requestWith(stolen))
	assert.ErrorIs(t, err, ErrRememberMeReused)
	assert.Equal(t, -1, rememberCookie(t, rec).MaxAge)

	_, err = env.svc.AutoLogin(ctx, httptest.NewRecorder(), requestWith(laptop))
	assert.ErrorIs(t, err, ErrInvalidRememberMe)

	username, err := env.svc.AutoLogin(ctx, httptest.NewRecorder(), requestWith(other))
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", username)
}

func TestAutoLogin_Expired(t *testing.T) {
	env := newRememberEnv(t)
	ctx := context.Background()
	cookie := env.remember(t, "hwayeon@example.com")

	env.clock = env.clock.Add(15 * 24 * time.Hour)
	rec := httptest.NewRecorder()
	_, err := env.svc.AutoLogin(ctx, rec, requestWith(cookie))
	assert.ErrorIs(t, err, ErrInvalidRememberMe)
	assert.Equal(t, -1, rememberCookie(t, rec).MaxAge)

	series, _, _ := strings.Cut(cookie.Value, ":")
	_, err = env.logins.BySeries(ctx, series)
	assert.ErrorIs(t, err, repository.ErrPersistentLoginNotFound)
}

func TestAutoLogin_RejectsBadCookies(t *testing.T) {
	env := newRememberEnv(t)
	ctx := context.Background()

	_, err := env.svc.AutoLogin(ctx, httptest.NewRecorder(), requestWith(nil))
	assert.ErrorIs(t, err, ErrNoRememberMe)

	for _, value := range []string{"no-separator", ":token", "series:", "unknown-series:token"} {
		rec := httptest.NewRecorder()
		_, err := env.svc.AutoLogin(ctx, rec, requestWith(&http.Cookie{Name: RememberMeCookieName, Value: value}))
		assert.ErrorIs(t, err, ErrInvalidRememberMe, value)
		assert.Equal(t, -1, rememberCookie(t, rec).MaxAge, value)
	}
}

func TestForget(t *testing.T) {
	env := newRememberEnv(t)
	ctx := context.Background()
	cookie := env.remember(t, "hwayeon@example.com")

	rec := httptest.NewRecorder()
	require.NoError(t, env.svc.Forget(ctx, rec, "hwayeon@example.com"))
	assert.Equal(t, -1, rememberCookie(t, rec).MaxAge)

	_, err := env.svc.AutoLogin(ctx, httptest.NewRecorder(), requestWith(cookie))
	assert.ErrorIs(t, err, ErrInvalidRememberMe)
}
