package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// storeTimeout bounds every store call; a slow database surfaces as an
// error instead of hanging the request.
const storeTimeout = 5 * time.Second

var _ UserStore = (*PGStore)(nil)

// PGStore implements UserStore using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`insert into users(email, password_hash) values($1,$2) returning id, created_at`,
		u.Email, u.PasswordHash,
	)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return withEmail(ErrUserExists, u.Email)
		}
		return err
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id int64) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, created_at from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, created_at from users where email=$1`, email)
	u, err := scanUser(row)
	if errors.Is(err, ErrUserNotFound) {
		return nil, withEmail(ErrUserNotFound, email)
	}
	return u, err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
