package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/studyolle/studyolle/internal/model"
)

var ErrPersistentLoginNotFound = errors.New("persistent login not found")

type PersistentLoginRepository interface {
	Create(ctx context.Context, login *model.PersistentLogin) error
	BySeries(ctx context.Context, series string) (*model.PersistentLogin, error)
	// RotateToken replaces the token of series only if it still holds
	// oldToken, so one cookie value can be rotated at most once.
	RotateToken(ctx context.Context, series, oldToken, newToken string, lastUsed time.Time) error
	DeleteBySeries(ctx context.Context, series string) error
	DeleteByUsername(ctx context.Context, username string) error
}

type persistentLoginRepository struct {
	db *sqlx.DB
}

func NewPersistentLoginRepository(db *sqlx.DB) PersistentLoginRepository {
	return &persistentLoginRepository{db: db}
}

func (r *persistentLoginRepository) Create(ctx context.Context, login *model.PersistentLogin) error {
	query := `INSERT INTO persistent_logins (series, username, token, last_used) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, login.Series, login.Username, login.Token, login.LastUsed)
	return err
}

func (r *persistentLoginRepository) BySeries(ctx context.Context, series string) (*model.PersistentLogin, error) {
	login := &model.PersistentLogin{}
	err := r.db.GetContext(ctx, login, `SELECT * FROM persistent_logins WHERE series = $1`, series)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPersistentLoginNotFound
	}
	if err != nil {
		return nil, err
	}
	return login, nil
}

func (r *persistentLoginRepository) RotateToken(ctx context.Context, series, oldToken, newToken string, lastUsed time.Time) error {
	query := `UPDATE persistent_logins SET token = $1, last_used = $2 WHERE series = $3 AND token = $4`
	result, err := r.db.ExecContext(ctx, query, newToken, lastUsed, series, oldToken)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPersistentLoginNotFound
	}
	return nil
}

func (r *persistentLoginRepository) DeleteBySeries(ctx context.Context, series string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM persistent_logins WHERE series = $1`, series)
	return err
}

func (r *persistentLoginRepository) DeleteByUsername(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM persistent_logins WHERE username = $1`, username)
	return err
}
