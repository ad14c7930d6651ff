package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/repository"
)

var userColumns = []string{"username", "password_hash", "role", "created_at", "password_changed_at"}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed credential store.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{exec: exec, builder: newBuilder()}
}

// Create inserts the account unless the username already exists.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.Username,
			user.PasswordHash,
			user.Role.String(),
			user.CreatedAt,
			user.PasswordChangedAt,
		).
		Suffix("ON CONFLICT (username) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

// Get retrieves an account by username.
func (r *UserRepository) Get(ctx context.Context, username string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

// List returns all accounts ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From(usersTable).
		OrderBy("username ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateRole changes the role of an existing account.
func (r *UserRepository) UpdateRole(ctx context.Context, username string, role domain.Role) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("role", role.String()).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}
	return r.execAffecting(ctx, "update role", stmt, args)
}

// UpdatePassword replaces the password hash of an existing account.
func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}
	return r.execAffecting(ctx, "update password", stmt, args)
}

// Delete removes the account.
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	stmt, args, err := r.builder.Delete(usersTable).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}
	return r.execAffecting(ctx, "delete user", stmt, args)
}

func (r *UserRepository) execAffecting(ctx context.Context, op, stmt string, args []any) error {
	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(&user.Username, &user.PasswordHash, &role, &user.CreatedAt, &user.PasswordChangedAt); err != nil {
		return domain.User{}, err
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", user.Username, err)
	}
	user.Role = parsed
	return user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
