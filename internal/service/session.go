package service

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/studyolle/studyolle/internal/model"
)

const SessionCookieName = "session"

var ErrInvalidSession = errors.New("invalid session")

// SessionStore persists an authentication context against the browser session
// of the current request.
type SessionStore interface {
	Save(w http.ResponseWriter, auth *model.AuthContext) error
	Load(r *http.Request) (*model.AuthContext, error)
	Clear(w http.ResponseWriter)
}

type sessionClaims struct {
	Nickname string   `json:"nickname"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// SessionService keeps the authentication context in a signed, HttpOnly cookie.
type SessionService struct {
	secret       []byte
	isProduction bool
}

func NewSessionService(secret string, isProduction bool) *SessionService {
	return &SessionService{
		secret:       []byte(secret),
		isProduction: isProduction,
	}
}

func (s *SessionService) Save(w http.ResponseWriter, auth *model.AuthContext) error {
	claims := sessionClaims{
		Nickname: auth.Nickname,
		Roles:    auth.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   auth.AccountID,
			IssuedAt:  jwt.NewNumericDate(auth.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(auth.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Expires:  auth.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *SessionService) Load(r *http.Request) (*model.AuthContext, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrInvalidSession
	}
	return s.Parse(cookie.Value)
}

// Parse verifies a signed session token and returns the context it carries.
func (s *SessionService) Parse(tokenString string) (*model.AuthContext, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid || claims.Subject == "" || !slices.Contains(claims.Roles, model.RoleUser) {
		return nil, ErrInvalidSession
	}

	auth := &model.AuthContext{
		AccountID: claims.Subject,
		Nickname:  claims.Nickname,
		Roles:     claims.Roles,
	}
	if claims.IssuedAt != nil {
		auth.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		auth.ExpiresAt = claims.ExpiresAt.Time
	}
	return auth, nil
}

func (s *SessionService) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
