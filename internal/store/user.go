package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/contactbook/apiserver/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const usersUsernameKey = "app_users_username_key"

// UserRepository handles persistence for login users.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID           int64          `db:"id"`
	Username     string         `db:"username"`
	PasswordHash string         `db:"password_hash"`
	Roles        pq.StringArray `db:"roles"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (row userRow) toUser() types.User {
	return types.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Roles:        types.NormalizeRoles(row.Roles),
		CreatedAt:    row.CreatedAt,
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	const query = `
		SELECT id, username, password_hash, roles, created_at
		FROM app_users
		WHERE id = $1`
	return r.getUser(ctx, query, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, password_hash, roles, created_at
		FROM app_users
		WHERE username = $1`
	return r.getUser(ctx, query, username)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Roles = types.NormalizeRoles(user.Roles)

	const query = `
		INSERT INTO app_users (username, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowxContext(
		ctx,
		query,
		user.Username,
		user.PasswordHash,
		pq.StringArray(user.Roles),
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err, usersUsernameKey) {
			return types.User{}, ErrDuplicateUsername
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) getUser(ctx context.Context, query string, arg any) (types.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return row.toUser(), nil
}
