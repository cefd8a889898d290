package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/geocoder89/speakup/internal/domain/user"
	"github.com/geocoder89/speakup/internal/observability"
)

// Pool is the part of *pgxpool.Pool the repo needs; pgxmock satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const userColumns = `id, email, hashed_password, display_name, phone_number, gender, location,
	avatar_path, is_admin, status, confirmation_token, confirmation_token_expires_at,
	reset_token, reset_token_expires_at, created_at`

type UsersRepo struct {
	pool Pool
	prom *observability.Prom
}

func NewUsersRepo(pool Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *UsersRepo) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(ctx, op, fn)
	}
	return fn(ctx)
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.find_by_email", "email", email)
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return r.findOne(ctx, "users.find_by_id", "id", id)
}

func (r *UsersRepo) findOne(ctx context.Context, op, column string, value string) (u user.User, err error) {
	err = r.observe(ctx, op, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = user.StatusPending
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	err := r.observe(ctx, "users.create", func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			u.ID, u.Email, u.HashedPassword, u.DisplayName, u.PhoneNumber, u.Gender, u.Location,
			u.AvatarPath, u.IsAdmin, string(u.Status), u.ConfirmationToken, u.ConfirmationTokenExpiry,
			u.ResetToken, u.ResetTokenExpiry, u.CreatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) UpdateByEmail(ctx context.Context, email string, patch user.Patch) error {
	return r.update(ctx, "users.update_by_email", "email", email, patch)
}

func (r *UsersRepo) UpdateByID(ctx context.Context, id string, patch user.Patch) error {
	if _, err := uuid.Parse(id); err != nil {
		return user.ErrNotFound
	}
	return r.update(ctx, "users.update_by_id", "id", id, patch)
}

// update applies patch in a single UPDATE. Guards become extra WHERE
// conditions, so a consumed or replaced token makes the statement match no row.
func (r *UsersRepo) update(ctx context.Context, op, column, key string, patch user.Patch) error {
	q := buildUpdate(column, key, patch)
	if q == nil {
		return r.exists(ctx, column, key)
	}

	var tag pgconn.CommandTag
	err := r.observe(ctx, op, func(ctx context.Context) error {
		var err error
		tag, err = r.pool.Exec(ctx, q.sql, q.args...)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		if !q.guarded {
			return user.ErrNotFound
		}
		// tell a lost race apart from a missing row
		if err := r.exists(ctx, column, key); err != nil {
			return err
		}
		return user.ErrConflict
	}
	return nil
}

func (r *UsersRepo) exists(ctx context.Context, column, key string) error {
	var found bool
	err := r.observe(ctx, "users.exists", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE `+column+` = $1)`, key).Scan(&found)
	})
	if err != nil {
		return err
	}
	if !found {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return user.ErrNotFound
	}

	var tag pgconn.CommandTag
	err := r.observe(ctx, "users.delete", func(ctx context.Context) error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var out []user.User

	err := r.observe(ctx, "users.list", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u      user.User
		status string
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.DisplayName,
		&u.PhoneNumber,
		&u.Gender,
		&u.Location,
		&u.AvatarPath,
		&u.IsAdmin,
		&status,
		&u.ConfirmationToken,
		&u.ConfirmationTokenExpiry,
		&u.ResetToken,
		&u.ResetTokenExpiry,
		&u.CreatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	u.Status = user.Status(status)
	return u, nil
}

type updateQuery struct {
	sql     string
	args    []any
	guarded bool
}

// buildUpdate renders patch as UPDATE users SET ... WHERE column = $1 [AND guards].
// It returns nil for an empty patch.
func buildUpdate(column, key string, patch user.Patch) *updateQuery {
	if patch.IsEmpty() {
		return nil
	}

	args := []any{key}
	var sets []string

	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.HashedPassword != nil {
		set("hashed_password", *patch.HashedPassword)
	}
	setOptional := func(col string, v *string) {
		switch {
		case v == nil:
		case *v == "":
			sets = append(sets, col+" = NULL")
		default:
			set(col, *v)
		}
	}
	setOptional("display_name", patch.DisplayName)
	setOptional("phone_number", patch.PhoneNumber)
	setOptional("gender", patch.Gender)
	setOptional("location", patch.Location)
	setOptional("avatar_path", patch.AvatarPath)
	if patch.IsAdmin != nil {
		set("is_admin", *patch.IsAdmin)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if t := patch.ConfirmationToken; t != nil {
		if t.IsClear() {
			sets = append(sets, "confirmation_token = NULL", "confirmation_token_expires_at = NULL")
		} else {
			set("confirmation_token", t.Token)
			set("confirmation_token_expires_at", t.ExpiresAt)
		}
	}
	if t := patch.ResetToken; t != nil {
		if t.IsClear() {
			sets = append(sets, "reset_token = NULL", "reset_token_expires_at = NULL")
		} else {
			set("reset_token", t.Token)
			set("reset_token_expires_at", t.ExpiresAt)
		}
	}

	where := []string{column + " = $1"}
	guard := func(col, v string) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.IfConfirmationToken != nil {
		guard("confirmation_token", *patch.IfConfirmationToken)
	}
	if patch.IfResetToken != nil {
		guard("reset_token", *patch.IfResetToken)
	}

	return &updateQuery{
		sql:     "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(where, " AND "),
		args:    args,
		guarded: len(where) > 1,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
