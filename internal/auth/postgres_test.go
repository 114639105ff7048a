package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Now().UTC()
	mock.ExpectQuery("insert into users").
		WithArgs("a@x.com", "hashed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), created))

	store := NewPGStore(db)
	u := &User{Email: "a@x.com", PasswordHash: "hashed"}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID != 5 || !u.CreatedAt.Equal(created) {
		t.Fatalf("record not populated from returning clause: %+v", u)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("insert into users").
		WithArgs("a@x.com", "hashed").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"})

	store := NewPGStore(db)
	err = store.Create(context.Background(), &User{Email: "a@x.com", PasswordHash: "hashed"})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if EmailFromError(err) != "a@x.com" {
		t.Fatalf("expected offending email, got %q", EmailFromError(err))
	}
}

func TestPGStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
		AddRow(int64(9), "a@x.com", "hashed", created)
	mock.ExpectQuery("select id, email, password_hash, created_at from users where id").
		WithArgs(int64(9)).
		WillReturnRows(rows)

	store := NewPGStore(db)
	u, err := store.Find(context.Background(), 9)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if u.ID != 9 || u.Email != "a@x.com" || u.PasswordHash != "hashed" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestPGStoreFindByEmailMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, email, password_hash, created_at from users where email").
		WithArgs("missing@x.com").
		WillReturnError(sql.ErrNoRows)

	store := NewPGStore(db)
	_, err = store.FindByEmail(context.Background(), "missing@x.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if EmailFromError(err) != "missing@x.com" {
		t.Fatalf("expected email on error, got %q", EmailFromError(err))
	}
}
