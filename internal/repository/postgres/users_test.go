package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

func TestUserRepository_FindByEmailAndUsername(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	createdAt := time.Now().UTC()
	mock.ExpectQuery(`SELECT username, email, created_at FROM resetd\.users WHERE email = \$1 AND username = \$2 LIMIT 1`).
		WithArgs("alice@x.com", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"username", "email", "created_at"}).AddRow("alice", "alice@x.com", createdAt))

	user, err := repo.FindByEmailAndUsername(context.Background(), "alice@x.com", "alice")
	if err != nil {
		t.Fatalf("FindByEmailAndUsername returned error: %v", err)
	}
	if user.Username != "alice" || user.Email != "alice@x.com" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUserRepository_FindByEmailAndUsernameNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(`FROM resetd\.users`).
		WithArgs("bob@x.com", "alice").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FindByEmailAndUsername(context.Background(), "bob@x.com", "alice"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec(`INSERT INTO resetd\.users`).
		WithArgs("alice", "alice@x.com", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := repo.Create(context.Background(), domain.User{Username: "alice", Email: "alice@x.com"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec(`DELETE FROM resetd\.users WHERE email = \$1 AND username = \$2`).
		WithArgs("alice@x.com", "alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM resetd\.users`).
		WithArgs("alice@x.com", "alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "alice@x.com", "alice"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := repo.Delete(context.Background(), "alice@x.com", "alice"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/db":   "pgx5://u:p@localhost:5432/db",
		"postgresql://u:p@localhost:5432/db": "pgx5://u:p@localhost:5432/db",
		"pgx5://u:p@localhost:5432/db":       "pgx5://u:p@localhost:5432/db",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Fatalf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}
