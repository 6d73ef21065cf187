package repository

import (
	"context"
	"errors"

	"telegram_miniapp/internal/domain"
	"telegram_miniapp/internal/telegram"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `tg_id, username, first_name, last_name, language_code, photo_url, is_premium, first_seen_at, last_seen_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.TgID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.LanguageCode,
		&u.PhotoURL,
		&u.IsPremium,
		&u.FirstSeenAt,
		&u.LastSeenAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Upsert records that u was just seen, refreshing the stored profile fields.
func (r *UserRepository) Upsert(ctx context.Context, u *telegram.User) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO telegram_users (tg_id, username, first_name, last_name, language_code, photo_url, is_premium)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (tg_id) DO UPDATE SET
		     username = EXCLUDED.username,
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     language_code = EXCLUDED.language_code,
		     photo_url = EXCLUDED.photo_url,
		     is_premium = EXCLUDED.is_premium,
		     last_seen_at = NOW()
		 RETURNING `+userColumns,
		u.ID,
		u.Username,
		u.FirstName,
		u.LastName,
		u.LanguageCode,
		u.PhotoURL,
		u.IsPremium,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM telegram_users
		 WHERE tg_id = $1`,
		tgID,
	)
	return scanUser(row)
}

// Touch bumps last_seen_at for a user identified by a session token.
func (r *UserRepository) Touch(ctx context.Context, tgID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE telegram_users SET last_seen_at = NOW() WHERE tg_id = $1`, tgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
