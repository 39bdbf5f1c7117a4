package data

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eduhub/authbroker/internal/data/pgxutil"
	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
)

// UserRepo provides database operations for user accounts. All methods return
// value snapshots; the caller never holds a reference into the store.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// userRow mirrors the users table for pgx struct scanning.
type userRow struct {
	Email        string   `db:"email"`
	DisplayName  string   `db:"display_name"`
	Roles        []string `db:"roles"`
	RefreshToken string   `db:"refresh_token"`
}

func (row userRow) toDomain() domainauth.User {
	roles := make([]domainauth.Role, 0, len(row.Roles))
	for _, r := range row.Roles {
		roles = append(roles, domainauth.Role(r))
	}
	return domainauth.User{
		Email:        row.Email,
		DisplayName:  row.DisplayName,
		Roles:        roles,
		RefreshToken: row.RefreshToken,
	}
}

const userColumns = "email, display_name, roles, refresh_token"

// FindByEmail retrieves a user by email. Returns a NotFound AppError when no
// record exists.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domainauth.User, error) {
	var out userRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			strings.TrimSpace(email),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
		return err
	})
	if err != nil {
		return domainauth.User{}, apperrors.MapDBError(err)
	}
	return out.toDomain(), nil
}

// CreateIfAbsent inserts the user unless a record for the email already
// exists, then returns the stored record. The unique constraint on email is
// the arbiter under concurrency: of N racing inserts exactly one lands, and
// every caller reads back the same surviving row.
func (r *UserRepo) CreateIfAbsent(ctx context.Context, user domainauth.User) (domainauth.User, error) {
	roles := user.Roles
	if len(roles) == 0 {
		roles = []domainauth.Role{domainauth.RoleStudent}
	}
	roleStrings := make([]string, 0, len(roles))
	for _, role := range roles {
		roleStrings = append(roleStrings, string(role))
	}

	var out userRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO users (email, display_name, roles, refresh_token)
			VALUES ($1, $2, $3, '')
			ON CONFLICT (email) DO NOTHING
		`,
			strings.TrimSpace(user.Email),
			user.DisplayName,
			roleStrings,
		)
		if err != nil {
			return err
		}

		rows, err := conn.Query(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			strings.TrimSpace(user.Email),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
		return err
	})
	if err != nil {
		return domainauth.User{}, apperrors.MapDBError(err)
	}
	return out.toDomain(), nil
}

// SetRefreshToken atomically replaces the user's stored refresh token. The
// single-statement UPDATE is the atomicity boundary; interleaved updates for
// other emails cannot clobber this row. Returns a NotFound AppError when the
// user does not exist.
func (r *UserRepo) SetRefreshToken(ctx context.Context, email, token string) error {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE users SET refresh_token = $2 WHERE email = $1`,
			strings.TrimSpace(email),
			token,
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if affected == 0 {
		return apperrors.NotFoundf("user %q not found", email)
	}
	return nil
}
