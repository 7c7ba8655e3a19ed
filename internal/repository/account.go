package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/studyolle/studyolle/internal/model"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateNickname = errors.New("nickname already exists")
	// ErrTokenMismatch is returned when a conditional token update matched no row,
	// either because the token is wrong or because it was already consumed.
	ErrTokenMismatch = errors.New("email check token does not match")
)

const pgUniqueViolation = "23505"

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	ByID(ctx context.Context, id string) (*model.Account, error)
	ByEmail(ctx context.Context, email string) (*model.Account, error)
	ByNickname(ctx context.Context, nickname string) (*model.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
	Count(ctx context.Context) (int, error)

	UpdateEmailCheckToken(ctx context.Context, id, token string, generatedAt time.Time) error
	ConsumeEmailCheckToken(ctx context.Context, id, token string, joinedAt time.Time) error
	ConsumeLoginToken(ctx context.Context, id, token string) error
	ResetEmailCheckTokenGeneratedAt(ctx context.Context, id string) error
	MarkEmailVerified(ctx context.Context, id string, joinedAt time.Time) error
	UpdateProfile(ctx context.Context, id string, profile model.Profile) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateNotifications(ctx context.Context, id string, notifications model.Notifications) error
	UpdateNickname(ctx context.Context, id, nickname string) error
	Delete(ctx context.Context, id string) error

	// WithTx runs fn against a repository bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(AccountRepository) error) error
}

type accountRepository struct {
	db   *sqlx.DB
	exec sqlx.ExtContext
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db, exec: db}
}

func (r *accountRepository) WithTx(ctx context.Context, fn func(AccountRepository) error) error {
	// Already inside a transaction: join it.
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = fn(&accountRepository{exec: tx})
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to rollback: %w", rbErr))
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	query := `
		INSERT INTO accounts (
			id, email, nickname, password, email_verified,
			email_check_token, email_check_token_generated_at, joined_at,
			bio, url, occupation, location, profile_image,
			study_created_by_email, study_created_by_web,
			study_enrollment_result_by_email, study_enrollment_result_by_web,
			study_updated_by_email, study_updated_by_web,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.exec.ExecContext(ctx, query,
		a.ID, a.Email, a.Nickname, a.Password, a.EmailVerified,
		a.EmailCheckToken, a.EmailCheckTokenGeneratedAt, a.JoinedAt,
		a.Bio, a.URL, a.Occupation, a.Location, a.ProfileImage,
		a.StudyCreatedByEmail, a.StudyCreatedByWeb,
		a.StudyEnrollmentResultByEmail, a.StudyEnrollmentResultByWeb,
		a.StudyUpdatedByEmail, a.StudyUpdatedByWeb,
		a.CreatedAt,
	)
	if err != nil {
		return uniqueViolation(err)
	}
	return nil
}

func (r *accountRepository) ByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getOne(ctx, `SELECT * FROM accounts WHERE id = $1`, id)
}

func (r *accountRepository) ByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx, `SELECT * FROM accounts WHERE email = $1`, email)
}

func (r *accountRepository) ByNickname(ctx context.Context, nickname string) (*model.Account, error) {
	return r.getOne(ctx, `SELECT * FROM accounts WHERE nickname = $1`, nickname)
}

func (r *accountRepository) getOne(ctx context.Context, query string, arg any) (*model.Account, error) {
	account := &model.Account{}
	err := sqlx.GetContext(ctx, r.exec, account, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.exec, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email)
	return exists, err
}

func (r *accountRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.exec, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE nickname = $1)`, nickname)
	return exists, err
}

func (r *accountRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.exec, &n, `SELECT COUNT(*) FROM accounts`)
	return n, err
}

func (r *accountRepository) UpdateEmailCheckToken(ctx context.Context, id, token string, generatedAt time.Time) error {
	query := `UPDATE accounts SET email_check_token = $1, email_check_token_generated_at = $2 WHERE id = $3`
	return r.execOne(ctx, query, token, generatedAt, id)
}

// ConsumeEmailCheckToken verifies the account only if token is still the
// pending one. The check and the write are one statement, so a token can be
// consumed at most once even under concurrent requests.
func (r *accountRepository) ConsumeEmailCheckToken(ctx context.Context, id, token string, joinedAt time.Time) error {
	query := `
		UPDATE accounts
		SET email_verified = $1, joined_at = $2, email_check_token = NULL
		WHERE id = $3
		AND email_check_token = $4
		AND email_verified = $5
	`
	err := r.execOne(ctx, query, true, joinedAt, id, token, false)
	if errors.Is(err, ErrAccountNotFound) {
		return ErrTokenMismatch
	}
	return err
}

// ConsumeLoginToken retires an email login token of a verified account. Like
// ConsumeEmailCheckToken, a token matches at most once.
func (r *accountRepository) ConsumeLoginToken(ctx context.Context, id, token string) error {
	query := `
		UPDATE accounts
		SET email_check_token = NULL
		WHERE id = $1
		AND email_check_token = $2
		AND email_verified = $3
	`
	err := r.execOne(ctx, query, id, token, true)
	if errors.Is(err, ErrAccountNotFound) {
		return ErrTokenMismatch
	}
	return err
}

// ResetEmailCheckTokenGeneratedAt lifts the resend throttle, keeping the token.
func (r *accountRepository) ResetEmailCheckTokenGeneratedAt(ctx context.Context, id string) error {
	return r.execOne(ctx, `UPDATE accounts SET email_check_token_generated_at = NULL WHERE id = $1`, id)
}

func (r *accountRepository) MarkEmailVerified(ctx context.Context, id string, joinedAt time.Time) error {
	query := `UPDATE accounts SET email_verified = $1, joined_at = $2, email_check_token = NULL WHERE id = $3`
	return r.execOne(ctx, query, true, joinedAt, id)
}

func (r *accountRepository) UpdateProfile(ctx context.Context, id string, p model.Profile) error {
	query := `
		UPDATE accounts
		SET bio = $1, url = $2, occupation = $3, location = $4, profile_image = $5
		WHERE id = $6
	`
	return r.execOne(ctx, query, p.Bio, p.URL, p.Occupation, p.Location, p.ProfileImage, id)
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, `UPDATE accounts SET password = $1 WHERE id = $2`, passwordHash, id)
}

func (r *accountRepository) UpdateNotifications(ctx context.Context, id string, n model.Notifications) error {
	query := `
		UPDATE accounts
		SET study_created_by_email = $1, study_created_by_web = $2,
			study_enrollment_result_by_email = $3, study_enrollment_result_by_web = $4,
			study_updated_by_email = $5, study_updated_by_web = $6
		WHERE id = $7
	`
	return r.execOne(ctx, query,
		n.StudyCreatedByEmail, n.StudyCreatedByWeb,
		n.StudyEnrollmentResultByEmail, n.StudyEnrollmentResultByWeb,
		n.StudyUpdatedByEmail, n.StudyUpdatedByWeb,
		id,
	)
}

func (r *accountRepository) UpdateNickname(ctx context.Context, id, nickname string) error {
	err := r.execOne(ctx, `UPDATE accounts SET nickname = $1 WHERE id = $2`, nickname, id)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return uniqueViolation(err)
	}
	return err
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM accounts WHERE id = $1`, id)
}

// execOne runs a statement expected to touch exactly one row.
func (r *accountRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// uniqueViolation maps unique constraint errors from either driver onto the
// matching sentinel error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "nickname") {
			return ErrDuplicateNickname
		}
		return ErrDuplicateEmail
	}

	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value") {
		if strings.Contains(errStr, "nickname") {
			return ErrDuplicateNickname
		}
		return ErrDuplicateEmail
	}
	return err
}
