package ctxkeys

import (
	"context"

	"github.com/studyolle/studyolle/internal/config"
	"github.com/studyolle/studyolle/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	AuthKey      contextKey = "auth"
	AccountKey   contextKey = "account"
	URLPathKey   contextKey = "url_path"
	ConfigKey    contextKey = "config"
	CSRFTokenKey contextKey = "csrf_token"
)

// Auth returns the authentication context of the current request, or nil for
// anonymous requests.
func Auth(ctx context.Context) *model.AuthContext {
	auth, _ := ctx.Value(AuthKey).(*model.AuthContext)
	return auth
}

func WithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, AuthKey, auth)
}

// Account returns the signed-in account loaded for this request.
func Account(ctx context.Context) *model.Account {
	account, _ := ctx.Value(AccountKey).(*model.Account)
	return account
}

func WithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

func URLPath(ctx context.Context) string {
	path, _ := ctx.Value(URLPathKey).(string)
	return path
}

func WithURLPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, URLPathKey, path)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(CSRFTokenKey).(string)
	return token
}

func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFTokenKey, token)
}
