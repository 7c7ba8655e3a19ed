package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultDuplicate = "duplicate"
	ResultMismatch  = "mismatch"
	ResultRejected  = "rejected"
	ResultThrottled = "throttled"
	ResultReused    = "reused"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	AccountsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_created_total",
			Help: "Total number of sign-up attempts.",
		},
		[]string{"result"},
	)

	EmailVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_email_verifications_total",
			Help: "Total number of email verification attempts.",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	ConfirmEmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_confirm_emails_sent_total",
			Help: "Total number of verification emails dispatched.",
		},
		[]string{"result"},
	)

	LoginLinksSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_login_links_sent_total",
			Help: "Total number of email login links dispatched.",
		},
		[]string{"result"},
	)

	RememberMeLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_remember_me_logins_total",
			Help: "Total number of remember-me cookie logins.",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// MustRegister registers all collectors with the default registry. Safe to call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			AccountsCreatedTotal,
			EmailVerificationsTotal,
			LoginsTotal,
			ConfirmEmailsSentTotal,
			LoginLinksSentTotal,
			RememberMeLoginsTotal,
		)
	})
}

// Result maps an operation error onto a result label.
func Result(err error) string {
	if err == nil {
		return ResultSuccess
	}
	return ResultError
}
