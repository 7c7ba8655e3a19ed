package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/studyolle/studyolle/internal/metrics"
	"github.com/studyolle/studyolle/internal/model"
	"github.com/studyolle/studyolle/internal/repository"
)

const (
	RememberMeCookieName = "remember-me"
	// RememberMeParam is the login form checkbox that asks for a remembered login.
	RememberMeParam = "remember-me"
)

var (
	ErrNoRememberMe      = errors.New("no remember-me cookie")
	ErrInvalidRememberMe = errors.New("invalid remember-me cookie")
	// ErrRememberMeReused means a cookie value was presented after it had
	// already been rotated, so a copy of it is in someone else's hands.
	ErrRememberMeReused = errors.New("remember-me token reused")
)

// RememberMeService keeps logins alive across browser sessions with
// persistent series/token cookies. Every successful use rotates the token.
type RememberMeService struct {
	logins       repository.PersistentLoginRepository
	validity     time.Duration
	isProduction bool
	now          func() time.Time
}

func NewRememberMeService(logins repository.PersistentLoginRepository, validity time.Duration, isProduction bool) *RememberMeService {
	return &RememberMeService{
		logins:       logins,
		validity:     validity,
		isProduction: isProduction,
		now:          time.Now,
	}
}

// Remember starts a new series for username and sets its cookie.
func (s *RememberMeService) Remember(ctx context.Context, w http.ResponseWriter, username string) error {
	series, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate remember-me series: %w", err)
	}
	token, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate remember-me token: %w", err)
	}

	login := &model.PersistentLogin{
		Series:   series,
		Username: username,
		Token:    hashToken(token),
		LastUsed: s.now(),
	}
	err = s.logins.Create(ctx, login)
	if err != nil {
		return fmt.Errorf("failed to save remember-me login: %w", err)
	}

	s.setCookie(w, series, token)
	return nil
}

// AutoLogin checks the remember-me cookie of r, rotates its token and returns
// the remembered username. Rejected cookies are cleared.
func (s *RememberMeService) AutoLogin(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	cookie, err := r.Cookie(RememberMeCookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoRememberMe
	}

	series, token, ok := strings.Cut(cookie.Value, ":")
	if !ok || series == "" || token == "" {
		return "", s.reject(w, fmt.Errorf("%w: malformed", ErrInvalidRememberMe))
	}

	login, err := s.logins.BySeries(ctx, series)
	if errors.Is(err, repository.ErrPersistentLoginNotFound) {
		return "", s.reject(w, fmt.Errorf("%w: unknown series", ErrInvalidRememberMe))
	}
	if err != nil {
		metrics.RememberMeLoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("failed to get remember-me login: %w", err)
	}

	presented := hashToken(token)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(login.Token)) != 1 {
		// Revoke every remembered browser of the account
		err := s.logins.DeleteByUsername(ctx, login.Username)
		s.ClearCookie(w)
		metrics.RememberMeLoginsTotal.WithLabelValues(metrics.ResultReused).Inc()
		if err != nil {
			return "", errors.Join(ErrRememberMeReused, fmt.Errorf("failed to revoke remember-me logins: %w", err))
		}
		return "", ErrRememberMeReused
	}

	now := s.now()
	if login.Expired(now, s.validity) {
		rejected := s.reject(w, fmt.Errorf("%w: expired", ErrInvalidRememberMe))
		err := s.logins.DeleteBySeries(ctx, series)
		if err != nil {
			return "", errors.Join(rejected, fmt.Errorf("failed to delete expired remember-me login: %w", err))
		}
		return "", rejected
	}

	next, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate remember-me token: %w", err)
	}
	err = s.logins.RotateToken(ctx, series, login.Token, hashToken(next), now)
	if errors.Is(err, repository.ErrPersistentLoginNotFound) {
		// A concurrent request rotated it first
		return "", s.reject(w, fmt.Errorf("%w: already rotated", ErrInvalidRememberMe))
	}
	if err != nil {
		metrics.RememberMeLoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("failed to rotate remember-me token: %w", err)
	}

	s.setCookie(w, series, next)
	metrics.RememberMeLoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return login.Username, nil
}

// Forget revokes every remembered login of username and clears the cookie.
func (s *RememberMeService) Forget(ctx context.Context, w http.ResponseWriter, username string) error {
	s.ClearCookie(w)
	err := s.logins.DeleteByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to delete remember-me logins: %w", err)
	}
	return nil
}

func (s *RememberMeService) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberMeCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *RememberMeService) reject(w http.ResponseWriter, err error) error {
	s.ClearCookie(w)
	metrics.RememberMeLoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
	return err
}

func (s *RememberMeService) setCookie(w http.ResponseWriter, series, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberMeCookieName,
		Value:    series + ":" + token,
		MaxAge:   int(s.validity.Seconds()),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
