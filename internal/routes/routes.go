package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/studyolle/studyolle/internal/app"
	"github.com/studyolle/studyolle/internal/handler"
	"github.com/studyolle/studyolle/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler()
	auth := handler.NewAuthHandler(app.AccountService, app.RememberMeService)
	profile := handler.NewProfileHandler(app.AccountService, app.AvatarService)
	settings := handler.NewSettingsHandler(app.AccountService, app.AvatarService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	if app.Cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	// Home
	mux.HandleFunc("GET /{$}", home.HomePage)

	// Profiles
	mux.HandleFunc("GET /profile/{nickname}", profile.ProfilePage)

	// Sign-up, verification and login (POSTs rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("GET /sign-up", middleware.RequireGuest(auth.SignUpPage))
	mux.HandleFunc("POST /sign-up", rateLimiter(middleware.RequireGuest(auth.SignUp)))
	mux.HandleFunc("GET /check-email", auth.CheckEmailPage)
	mux.HandleFunc("POST /resend-confirm-email", rateLimiter(auth.ResendConfirmEmail))
	mux.HandleFunc("GET /check-email-token", auth.CheckEmailToken)
	mux.HandleFunc("GET /login", middleware.RequireGuest(auth.LoginPage))
	mux.HandleFunc("POST /login", rateLimiter(middleware.RequireGuest(auth.Login)))
	mux.HandleFunc("POST /logout", auth.Logout)

	// Password-less login by a one-time mailed link
	mux.HandleFunc("GET /email-login", middleware.RequireGuest(auth.EmailLoginPage))
	mux.HandleFunc("POST /email-login", rateLimiter(middleware.RequireGuest(auth.SendLoginLink)))
	mux.HandleFunc("GET /check-email-login", auth.CheckEmailLoginPage)
	mux.HandleFunc("GET /login-by-email", auth.LoginByEmail)

	// ============================================================================
	// PROTECTED ROUTES (/settings/*)
	// ============================================================================

	mux.HandleFunc("GET /settings/profile", middleware.RequireAuth(settings.ProfilePage))
	mux.HandleFunc("POST /settings/profile", middleware.RequireAuth(settings.UpdateProfile))
	mux.HandleFunc("GET /settings/password", middleware.RequireAuth(settings.PasswordPage))
	mux.HandleFunc("POST /settings/password", middleware.RequireAuth(settings.UpdatePassword))
	mux.HandleFunc("GET /settings/notifications", middleware.RequireAuth(settings.NotificationsPage))
	mux.HandleFunc("POST /settings/notifications", middleware.RequireAuth(settings.UpdateNotifications))
	mux.HandleFunc("GET /settings/account", middleware.RequireAuth(settings.AccountPage))
	mux.HandleFunc("POST /settings/account", middleware.RequireAuth(settings.UpdateNickname))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", home.NotFoundPage)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.Config(app.Cfg), // SecurityHeaders reads the S3 endpoint from it
		middleware.NonceMiddleware, // before SecurityHeaders
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.CSRFProtection,
		middleware.AuthMiddleware(app.SessionService, app.RememberMeService, app.AccountService, app.AvatarService),
		middleware.WithURLPath,
	)

	return handler
}
