package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studyolle/studyolle/internal/metrics"
	"github.com/studyolle/studyolle/internal/model"
	"github.com/studyolle/studyolle/internal/repository"
	"github.com/studyolle/studyolle/internal/validation"
)

var (
	ErrInvalidEmailToken   = errors.New("invalid email check token")
	ErrInvalidCredentials  = errors.New("invalid email, nickname or password")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrConfirmEmailTooSoon = errors.New("confirm email can only be sent once per interval")
	// ErrConfirmEmailNotSent is returned with the stored account when sign-up
	// succeeded but the verification email could not be dispatched.
	ErrConfirmEmailNotSent = errors.New("confirm email not sent")
	ErrInvalidLoginLink    = errors.New("invalid email login link")
)

type SignUpRequest struct {
	Email    string
	Nickname string
	Password string
}

// AccountService owns the account lifecycle: sign-up, verification,
// session establishment and settings mutation.
type AccountService struct {
	accounts       repository.AccountRepository
	encoder        PasswordEncoder
	mailer         AccountMailer
	sessions       SessionStore
	sessionExpiry  time.Duration
	resendInterval time.Duration
	now            func() time.Time
}

func NewAccountService(
	accounts repository.AccountRepository,
	encoder PasswordEncoder,
	mailer AccountMailer,
	sessions SessionStore,
	sessionExpiry time.Duration,
	resendInterval time.Duration,
) *AccountService {
	return &AccountService{
		accounts:       accounts,
		encoder:        encoder,
		mailer:         mailer,
		sessions:       sessions,
		sessionExpiry:  sessionExpiry,
		resendInterval: resendInterval,
		now:            time.Now,
	}
}

// CreateAccount persists a new unverified account with its verification token
// in one transaction, then sends the verification email. A failed save sends
// nothing. A failed send keeps the account, returns ErrConfirmEmailNotSent and
// leaves the resend throttle open.
func (s *AccountService) CreateAccount(ctx context.Context, req SignUpRequest) (*model.Account, error) {
	hash, err := s.encoder.Encode(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode password: %w", err)
	}

	now := s.now()
	account := &model.Account{
		ID:            uuid.NewString(),
		Email:         NormalizeEmail(req.Email),
		Nickname:      req.Nickname,
		Password:      hash,
		Notifications: model.DefaultNotifications(),
		CreatedAt:     now,
	}

	var token string
	err = s.accounts.WithTx(ctx, func(tx repository.AccountRepository) error {
		err := tx.Create(ctx, account)
		if err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		token, err = GenerateToken()
		if err != nil {
			return fmt.Errorf("failed to generate email check token: %w", err)
		}

		err = tx.UpdateEmailCheckToken(ctx, account.ID, token, now)
		if err != nil {
			return fmt.Errorf("failed to save email check token: %w", err)
		}
		return nil
	})
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateNickname) {
			result = metrics.ResultDuplicate
		}
		metrics.AccountsCreatedTotal.WithLabelValues(result).Inc()
		return nil, err
	}

	account.IssueEmailCheckToken(token, now)
	metrics.AccountsCreatedTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	slog.Info("account created", "account_id", account.ID, "nickname", account.Nickname)

	err = s.mailer.SendConfirmEmail(ctx, account.Email, token)
	if err != nil {
		s.releaseSendThrottle(ctx, account)
		return account, fmt.Errorf("%w: %w", ErrConfirmEmailNotSent, err)
	}
	return account, nil
}

// ResendConfirmEmail issues a fresh verification token for an unverified
// account and mails it. Unknown and already verified addresses are a silent no-op.
func (s *AccountService) ResendConfirmEmail(ctx context.Context, email string) error {
	account, err := s.accounts.ByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrAccountNotFound) {
		slog.Info("confirm email requested for unknown address")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account.EmailVerified {
		return nil
	}

	now := s.now()
	if !account.CanSendConfirmEmail(now, s.resendInterval) {
		metrics.ConfirmEmailsSentTotal.WithLabelValues(metrics.ResultThrottled).Inc()
		return ErrConfirmEmailTooSoon
	}

	token, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate email check token: %w", err)
	}

	err = s.accounts.UpdateEmailCheckToken(ctx, account.ID, token, now)
	if err != nil {
		return fmt.Errorf("failed to save email check token: %w", err)
	}
	account.IssueEmailCheckToken(token, now)

	err = s.mailer.SendConfirmEmail(ctx, account.Email, token)
	if err != nil {
		s.releaseSendThrottle(ctx, account)
		return fmt.Errorf("%w: %w", ErrConfirmEmailNotSent, err)
	}

	slog.Info("confirm email resent", "account_id", account.ID)
	return nil
}

// SendLoginLink mails a one-time login link to a verified account, reusing
// the email check token. It shares the resend throttle with ResendConfirmEmail.
// Unknown and unverified addresses are a silent no-op.
func (s *AccountService) SendLoginLink(ctx context.Context, email string) error {
	account, err := s.accounts.ByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrAccountNotFound) {
		slog.Info("login link requested for unknown address")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if !account.EmailVerified {
		slog.Info("login link requested for unverified account", "account_id", account.ID)
		return nil
	}

	now := s.now()
	if !account.CanSendConfirmEmail(now, s.resendInterval) {
		metrics.LoginLinksSentTotal.WithLabelValues(metrics.ResultThrottled).Inc()
		return ErrConfirmEmailTooSoon
	}

	token, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate login token: %w", err)
	}

	err = s.accounts.UpdateEmailCheckToken(ctx, account.ID, token, now)
	if err != nil {
		return fmt.Errorf("failed to save login token: %w", err)
	}
	account.IssueEmailCheckToken(token, now)

	err = s.mailer.SendLoginLink(ctx, account.Email, token)
	if err != nil {
		s.releaseSendThrottle(ctx, account)
		return fmt.Errorf("failed to send login link: %w", err)
	}

	slog.Info("login link sent", "account_id", account.ID)
	return nil
}

// LoginByEmail consumes a login link token and signs the account in. Each
// link works once.
func (s *AccountService) LoginByEmail(ctx context.Context, w http.ResponseWriter, email, token string) (*model.Account, error) {
	account, err := s.accounts.ByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrAccountNotFound) {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, ErrInvalidLoginLink
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !account.EmailVerified || !account.IsValidEmailCheckToken(token) {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, ErrInvalidLoginLink
	}

	err = s.accounts.ConsumeLoginToken(ctx, account.ID, token)
	if errors.Is(err, repository.ErrTokenMismatch) {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, ErrInvalidLoginLink
	}
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to consume login token: %w", err)
	}
	account.EmailCheckToken = nil

	_, err = s.EstablishSession(w, account)
	if err != nil {
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	slog.Info("login by email", "account_id", account.ID)
	return account, nil
}

// releaseSendThrottle lets the user ask for another email right away when
// the last one was never dispatched.
func (s *AccountService) releaseSendThrottle(ctx context.Context, account *model.Account) {
	err := s.accounts.ResetEmailCheckTokenGeneratedAt(ctx, account.ID)
	if err != nil {
		slog.Error("failed to reset email check token time", "account_id", account.ID, "error", err)
		return
	}
	account.EmailCheckTokenGeneratedAt = nil
}

// VerifyEmail consumes the pending token. It fails with ErrInvalidEmailToken,
// leaving the account untouched, when token is wrong or already used.
func (s *AccountService) VerifyEmail(ctx context.Context, account *model.Account, token string) error {
	if !account.IsValidEmailCheckToken(token) {
		metrics.EmailVerificationsTotal.WithLabelValues(metrics.ResultMismatch).Inc()
		return ErrInvalidEmailToken
	}

	now := s.now()
	err := s.accounts.ConsumeEmailCheckToken(ctx, account.ID, token, now)
	if errors.Is(err, repository.ErrTokenMismatch) {
		metrics.EmailVerificationsTotal.WithLabelValues(metrics.ResultMismatch).Inc()
		return ErrInvalidEmailToken
	}
	if err != nil {
		metrics.EmailVerificationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to verify email: %w", err)
	}

	account.CompleteSignUp(now)
	metrics.EmailVerificationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	slog.Info("email verified", "account_id", account.ID)
	return nil
}

// CompleteSignUp marks account verified without re-checking a token, persists
// it and then signs it in. An account already verified by VerifyEmail is not
// written again.
func (s *AccountService) CompleteSignUp(ctx context.Context, w http.ResponseWriter, account *model.Account) (*model.AuthContext, error) {
	if !account.EmailVerified {
		now := s.now()
		err := s.accounts.MarkEmailVerified(ctx, account.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		account.CompleteSignUp(now)
	}

	return s.EstablishSession(w, account)
}

// EstablishSession binds account to the USER role and stores the result in the
// session of the current response, replacing whatever was there.
func (s *AccountService) EstablishSession(w http.ResponseWriter, account *model.Account) (*model.AuthContext, error) {
	if !account.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	now := s.now()
	auth := model.NewAuthContext(account, now, now.Add(s.sessionExpiry))

	err := s.sessions.Save(w, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return auth, nil
}

func (s *AccountService) Logout(w http.ResponseWriter) {
	s.sessions.Clear(w)
}

// Login resolves identity as email or nickname and checks password.
func (s *AccountService) Login(ctx context.Context, identity, password string) (*model.Account, error) {
	account, err := s.LoadAccountByIdentity(ctx, identity)
	if errors.Is(err, repository.ErrAccountNotFound) {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
	}
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !s.encoder.Matches(password, account.Password) {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
	}

	if !account.EmailVerified {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, fmt.Errorf("email not verified: %w", ErrEmailNotVerified)
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return account, nil
}

// LoadAccountByIdentity looks identity up as an email first and as a nickname
// second. An email match always wins over another account's nickname.
// Nicknames are compared in the NFC form they are stored in.
func (s *AccountService) LoadAccountByIdentity(ctx context.Context, identity string) (*model.Account, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, repository.ErrAccountNotFound
	}

	account, err := s.accounts.ByEmail(ctx, NormalizeEmail(identity))
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}

	return s.accounts.ByNickname(ctx, validation.NormalizeNickname(identity))
}

func (s *AccountService) UpdateProfile(ctx context.Context, account *model.Account, profile model.Profile) error {
	err := s.accounts.UpdateProfile(ctx, account.ID, profile)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	account.Profile = profile
	return nil
}

// UpdatePassword replaces the stored hash. Sessions already issued stay valid.
func (s *AccountService) UpdatePassword(ctx context.Context, account *model.Account, newPassword string) error {
	hash, err := s.encoder.Encode(newPassword)
	if err != nil {
		return fmt.Errorf("failed to encode password: %w", err)
	}

	err = s.accounts.UpdatePassword(ctx, account.ID, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	account.Password = hash

	slog.Info("password updated", "account_id", account.ID)
	return nil
}

func (s *AccountService) UpdateNotifications(ctx context.Context, account *model.Account, notifications model.Notifications) error {
	err := s.accounts.UpdateNotifications(ctx, account.ID, notifications)
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	account.Notifications = notifications
	return nil
}

// UpdateNickname renames the account and re-issues the session so the
// authentication context carries the new nickname.
func (s *AccountService) UpdateNickname(ctx context.Context, w http.ResponseWriter, account *model.Account, nickname string) (*model.AuthContext, error) {
	err := s.accounts.UpdateNickname(ctx, account.ID, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to update nickname: %w", err)
	}

	slog.Info("nickname updated", "account_id", account.ID, "old_nickname", account.Nickname, "new_nickname", nickname)
	account.Nickname = nickname
	return s.EstablishSession(w, account)
}

func (s *AccountService) ByID(ctx context.Context, id string) (*model.Account, error) {
	return s.accounts.ByID(ctx, id)
}

func (s *AccountService) ByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.accounts.ByEmail(ctx, NormalizeEmail(email))
}

func (s *AccountService) ByNickname(ctx context.Context, nickname string) (*model.Account, error) {
	return s.accounts.ByNickname(ctx, nickname)
}

func (s *AccountService) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.accounts.ExistsByEmail(ctx, NormalizeEmail(email))
}

func (s *AccountService) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	return s.accounts.ExistsByNickname(ctx, nickname)
}

func (s *AccountService) Count(ctx context.Context) (int, error) {
	return s.accounts.Count(ctx)
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
