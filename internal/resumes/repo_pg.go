package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"resume-builder/resume/model"
)

const uniqueViolation = "23505"

// PGRepo stores resumes in Postgres. Personal info, the repeated sections and
// the original file reference are JSONB columns.
type PGRepo struct {
	DB *sql.DB
}

const resumeColumns = `id, user_id, title, template, personal_info, sections, is_public,
share_token, share_expiry, original_file, created_at, updated_at`

// sections is the JSONB layout of the repeated resume collections.
type sections struct {
	Education      []model.Education     `json:"education"`
	Experience     []model.Experience    `json:"experience"`
	Skills         []model.Skill         `json:"skills"`
	Projects       []model.Project       `json:"projects"`
	Certifications []model.Certification `json:"certifications"`
	Languages      []model.Language      `json:"languages"`
}

func (r *PGRepo) Create(ctx context.Context, res model.Resume) error {
	const query = `
INSERT INTO resumes (` + resumeColumns + `)
VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10::jsonb, $11, $12)`
	args, err := writeArgs(res)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, append(args, res.CreatedAt, res.UpdatedAt)...)
	return mapWriteError(err)
}

func (r *PGRepo) Update(ctx context.Context, res model.Resume) error {
	const query = `
UPDATE resumes SET
  user_id = $2,
  title = $3,
  template = $4,
  personal_info = $5::jsonb,
  sections = $6::jsonb,
  is_public = $7,
  share_token = $8,
  share_expiry = $9,
  original_file = $10::jsonb,
  updated_at = $11
WHERE id = $1`
	args, err := writeArgs(res)
	if err != nil {
		return err
	}
	result, err := r.DB.ExecContext(ctx, query, append(args, res.UpdatedAt)...)
	if err != nil {
		return mapWriteError(err)
	}
	return requireRow(result)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *PGRepo) Get(ctx context.Context, id string) (model.Resume, error) {
	return r.getOne(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = $1 LIMIT 1`, id)
}

func (r *PGRepo) GetByShareToken(ctx context.Context, token string, now time.Time) (model.Resume, error) {
	if token == "" {
		return model.Resume{}, ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE share_token = $1 AND share_expiry > $2 LIMIT 1`, token, now)
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]model.Resume, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	out := make([]model.Resume, 0)
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PGRepo) ClearExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	const query = `
UPDATE resumes
SET share_token = NULL, share_expiry = NULL
WHERE share_expiry IS NOT NULL AND share_expiry <= $1`
	result, err := r.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired shares: %w", err)
	}
	return result.RowsAffected()
}

func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PGRepo) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM resumes`).Scan(&n)
	return n, err
}

func (r *PGRepo) getOne(ctx context.Context, query string, args ...any) (model.Resume, error) {
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Resume{}, ErrNotFound
		}
		return model.Resume{}, err
	}
	return res, nil
}

// writeArgs returns the first ten positional arguments shared by insert and update.
func writeArgs(res model.Resume) ([]any, error) {
	personal, err := json.Marshal(res.PersonalInfo)
	if err != nil {
		return nil, fmt.Errorf("marshal personal info: %w", err)
	}
	secs, err := json.Marshal(sections{
		Education:      res.Education,
		Experience:     res.Experience,
		Skills:         res.Skills,
		Projects:       res.Projects,
		Certifications: res.Certifications,
		Languages:      res.Languages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal sections: %w", err)
	}
	var original any
	if res.OriginalFile != nil {
		raw, err := json.Marshal(res.OriginalFile)
		if err != nil {
			return nil, fmt.Errorf("marshal original file: %w", err)
		}
		original = string(raw)
	}
	var token, expiry any
	if res.ShareToken != nil {
		token = *res.ShareToken
	}
	if res.ShareExpiry != nil {
		expiry = *res.ShareExpiry
	}
	return []any{
		res.ID,
		res.UserID,
		res.Title,
		string(res.Template),
		string(personal),
		string(secs),
		res.IsPublic,
		token,
		expiry,
		original,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResume(row scanner) (model.Resume, error) {
	var (
		res            model.Resume
		template       string
		personal, secs []byte
		original       sql.NullString
		token          sql.NullString
		expiry         sql.NullTime
	)
	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.Title,
		&template,
		&personal,
		&secs,
		&res.IsPublic,
		&token,
		&expiry,
		&original,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return model.Resume{}, err
	}
	res.Template = model.Template(template)
	if len(personal) > 0 {
		if err := json.Unmarshal(personal, &res.PersonalInfo); err != nil {
			return model.Resume{}, fmt.Errorf("decode personal info for %s: %w", res.ID, err)
		}
	}
	if len(secs) > 0 {
		var s sections
		if err := json.Unmarshal(secs, &s); err != nil {
			return model.Resume{}, fmt.Errorf("decode sections for %s: %w", res.ID, err)
		}
		res.Education, res.Experience, res.Skills = s.Education, s.Experience, s.Skills
		res.Projects, res.Certifications, res.Languages = s.Projects, s.Certifications, s.Languages
	}
	if original.Valid && original.String != "" {
		var f model.OriginalFile
		if err := json.Unmarshal([]byte(original.String), &f); err != nil {
			return model.Resume{}, fmt.Errorf("decode original file for %s: %w", res.ID, err)
		}
		res.OriginalFile = &f
	}
	if token.Valid {
		t := token.String
		res.ShareToken = &t
	}
	if expiry.Valid {
		e := expiry.Time
		res.ShareExpiry = &e
	}
	res.Normalize()
	return res, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrTokenConflict
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

var _ Repo = (*PGRepo)(nil)
