package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, name, email, password_hash, auth_provider, google_id, profile_picture, avatar_key,
is_admin, refresh_token_hash, reset_token_hash, reset_token_expires, last_login, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (` + userColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Name,
		NormalizeEmail(user.Email),
		nullableString(user.PasswordHash),
		user.AuthProvider,
		nullableString(user.GoogleID),
		nullableString(user.ProfilePicture),
		nullableString(user.AvatarKey),
		user.IsAdmin,
		nullableString(user.RefreshTokenHash),
		nullableString(user.ResetTokenHash),
		nullableTime(user.ResetTokenExpires),
		nullableTime(user.LastLogin),
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *PGRepo) Update(ctx context.Context, user User) error {
	const query = `
UPDATE users SET
  name = $2,
  email = $3,
  password_hash = $4,
  auth_provider = $5,
  google_id = $6,
  profile_picture = $7,
  avatar_key = $8,
  is_admin = $9,
  refresh_token_hash = $10,
  reset_token_hash = $11,
  reset_token_expires = $12,
  last_login = $13,
  updated_at = $14
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Name,
		NormalizeEmail(user.Email),
		nullableString(user.PasswordHash),
		user.AuthProvider,
		nullableString(user.GoogleID),
		nullableString(user.ProfilePicture),
		nullableString(user.AvatarKey),
		user.IsAdmin,
		nullableString(user.RefreshTokenHash),
		nullableString(user.ResetTokenHash),
		nullableTime(user.ResetTokenExpires),
		nullableTime(user.LastLogin),
		user.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return requireRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, userID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, userID)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1 LIMIT 1`, NormalizeEmail(email))
}

func (r *PGRepo) GetByGoogleID(ctx context.Context, googleID string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1 LIMIT 1`, googleID)
}

func (r *PGRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1 AND reset_token_expires > $2 LIMIT 1`, tokenHash, now)
}

func (r *PGRepo) List(ctx context.Context, q ListQuery) ([]User, int, error) {
	where := ""
	args := []any{}
	if search := strings.TrimSpace(q.Search); search != "" {
		where = ` WHERE name ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+escapeLike(search)+"%")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, max(q.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, since).Scan(&n)
	return n, err
}

func (r *PGRepo) getOne(ctx context.Context, query string, args ...any) (User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var user User
	var passwordHash, googleID, picture, avatarKey, refreshHash, resetHash sql.NullString
	var resetExpires, lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&passwordHash,
		&user.AuthProvider,
		&googleID,
		&picture,
		&avatarKey,
		&user.IsAdmin,
		&refreshHash,
		&resetHash,
		&resetExpires,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	user.PasswordHash = passwordHash.String
	user.GoogleID = googleID.String
	user.ProfilePicture = picture.String
	user.AvatarKey = avatarKey.String
	user.RefreshTokenHash = refreshHash.String
	user.ResetTokenHash = resetHash.String
	if resetExpires.Valid {
		t := resetExpires.Time
		user.ResetTokenExpires = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return user, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

var _ Repo = (*PGRepo)(nil)
