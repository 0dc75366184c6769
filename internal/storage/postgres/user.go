package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/barista-pos/internal/domain/user"
)

const (
	createUserSQL = `INSERT INTO users (id, email, password_hash, name, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	getUserByIDSQL = `SELECT id, email, password_hash, name, created_at
		FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT id, email, password_hash, name, created_at
		FROM users WHERE email = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user. A duplicate email yields user.ErrEmailTaken, also
// when two registrations race.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return fmt.Errorf("parsing user id %q: %w", u.ID, err)
	}
	if _, err := r.pool.Exec(ctx, createUserSQL, id, u.Email, u.PasswordHash, u.Name, u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID returns the user with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return r.getOne(ctx, getUserByIDSQL, uid)
}

// GetByEmail returns the user with the given normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u  user.User
		id uuid.UUID
	)
	if err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt); err != nil {
		return user.User{}, err
	}
	u.ID = id.String()
	return u, nil
}
