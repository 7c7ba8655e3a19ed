package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/studyolle/studyolle/internal/metrics"
)

// AccountMailer dispatches the messages of the account lifecycle.
type AccountMailer interface {
	SendConfirmEmail(ctx context.Context, email, token string) error
	SendLoginLink(ctx context.Context, email, token string) error
}

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
}

func NewEmailService(apiKey, fromEmail string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
	}
}

func (s *EmailService) SendConfirmEmail(ctx context.Context, email, token string) error {
	subject, body := confirmEmailTemplate(token, email)

	err := s.send(ctx, "confirm_email", email, subject, body)
	metrics.ConfirmEmailsSentTotal.WithLabelValues(metrics.Result(err)).Inc()
	return err
}

func (s *EmailService) SendLoginLink(ctx context.Context, email, token string) error {
	subject, body := loginLinkTemplate(token, email)

	err := s.send(ctx, "login_link", email, subject, body)
	metrics.LoginLinksSentTotal.WithLabelValues(metrics.Result(err)).Inc()
	return err
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject, "body", body)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}
