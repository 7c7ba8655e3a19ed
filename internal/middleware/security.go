package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/studyolle/studyolle/internal/ctxkeys"
)

// SecurityHeaders sets CSP and the usual hardening headers. Must run after
// Config and NonceMiddleware.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		imgSrc := []string{"'self'", "data:"}
		if cfg := ctxkeys.Config(r.Context()); cfg != nil && cfg.S3Bucket != "" {
			if cfg.S3Endpoint != "" {
				imgSrc = append(imgSrc, strings.TrimSuffix(cfg.S3Endpoint, "/"))
			} else {
				imgSrc = append(imgSrc, fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region))
			}
		}

		scriptSrc := "'self'"
		if nonce := GetNonce(r.Context()); nonce != "" {
			scriptSrc += fmt.Sprintf(" 'nonce-%s'", nonce)
		}

		csp := strings.Join([]string{
			"default-src 'self'",
			"script-src " + scriptSrc,
			"style-src 'self' 'unsafe-inline'",
			"img-src " + strings.Join(imgSrc, " "),
			"form-action 'self'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
		}, "; ")

		h := w.Header()
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		cfg := ctxkeys.Config(r.Context())
		if cfg != nil && cfg.IsProduction() {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
