package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/studyolle/studyolle/internal/ctxkeys"
	"github.com/studyolle/studyolle/internal/model"
	"github.com/studyolle/studyolle/internal/repository"
	"github.com/studyolle/studyolle/internal/service"
)

// AuthMiddleware resolves the session cookie into an authentication context
// and the signed-in account, both scoped to this request only. Without a
// usable session it falls back to the remember-me cookie and, on success,
// issues a fresh session.
func AuthMiddleware(sessions service.SessionStore, remember *service.RememberMeService, accounts *service.AccountService, avatars *service.AvatarService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, account, err := sessionAccount(w, r, sessions, accounts)
			if err != nil {
				// Storage trouble: keep the cookies and serve anonymously
				slog.Error("failed to load session account", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if account == nil && remember != nil {
				auth, account = rememberedAccount(w, r, remember, accounts)
			}
			if account == nil {
				next.ServeHTTP(w, r)
				return
			}

			// The nickname may have changed since the session was issued
			auth.Nickname = account.Nickname

			// Security: keep the password hash out of the request context
			account.Password = ""
			avatars.Populate(account)

			ctx := ctxkeys.WithAuth(r.Context(), auth)
			ctx = ctxkeys.WithAccount(ctx, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionAccount returns the verified account behind the session cookie, or
// nils when there is none. The cookie is cleared only when it can never
// resolve again.
func sessionAccount(w http.ResponseWriter, r *http.Request, sessions service.SessionStore, accounts *service.AccountService) (*model.AuthContext, *model.Account, error) {
	if _, err := r.Cookie(service.SessionCookieName); err != nil {
		return nil, nil, nil
	}

	auth, err := sessions.Load(r)
	if err != nil {
		sessions.Clear(w)
		return nil, nil, nil
	}

	account, err := accounts.ByID(r.Context(), auth.AccountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		slog.Debug("session account gone", "account_id", auth.AccountID)
		sessions.Clear(w)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("account %s: %w", auth.AccountID, err)
	}
	if !account.EmailVerified {
		sessions.Clear(w)
		return nil, nil, nil
	}
	return auth, account, nil
}

func rememberedAccount(w http.ResponseWriter, r *http.Request, remember *service.RememberMeService, accounts *service.AccountService) (*model.AuthContext, *model.Account) {
	ctx := r.Context()

	username, err := remember.AutoLogin(ctx, w, r)
	switch {
	case errors.Is(err, service.ErrNoRememberMe):
		return nil, nil
	case errors.Is(err, service.ErrRememberMeReused):
		slog.Warn("remember-me token reused, remembered logins revoked", "error", err)
		return nil, nil
	case errors.Is(err, service.ErrInvalidRememberMe):
		slog.Info("remember-me cookie rejected", "error", err)
		return nil, nil
	case err != nil:
		slog.Error("remember-me login failed", "error", err)
		return nil, nil
	}

	account, err := accounts.LoadAccountByIdentity(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		remember.ClearCookie(w)
		return nil, nil
	}
	if err != nil {
		slog.Error("failed to load remembered account", "error", err)
		return nil, nil
	}

	auth, err := accounts.EstablishSession(w, account)
	if err != nil {
		slog.Info("remembered account cannot sign in", "account_id", account.ID, "error", err)
		remember.ClearCookie(w)
		return nil, nil
	}
	return auth, account
}

// RequireAuth sends anonymous requests to the login page.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Account(r.Context()) == nil {
			redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireGuest sends signed-in requests to the home page.
func RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Account(r.Context()) != nil {
			redirect(w, r, "/")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	// For HTMX requests, use HX-Redirect header to force full page redirect
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
