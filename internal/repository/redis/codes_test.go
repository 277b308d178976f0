package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/Korabi-dev/password-reset-adds/internal/core/domain"
	"github.com/Korabi-dev/password-reset-adds/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func sampleCode(code, email, username string, issuedAt time.Time) domain.ResetCode {
	return domain.ResetCode{Code: code, Email: email, Username: username, IssuedAt: issuedAt}
}

func TestCodeRepository_CreateAndFind(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewCodeRepository(client, "resetd", 15*time.Minute)
	ctx := context.Background()

	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, sampleCode("1234", "alice@x.com", "alice", issuedAt)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := repo.FindByCode(ctx, "1234")
	if err != nil {
		t.Fatalf("FindByCode returned error: %v", err)
	}
	if got.Email != "alice@x.com" || got.Username != "alice" || !got.IssuedAt.Equal(issuedAt) {
		t.Fatalf("unexpected record %+v", got)
	}

	for _, key := range []string{"resetd:code:1234", "resetd:email:alice@x.com", "resetd:username:alice"} {
		if ttl := server.TTL(key); ttl <= 0 || ttl > 15*time.Minute {
			t.Fatalf("expected ttl on %s within retention, got %v", key, ttl)
		}
	}
}

func TestCodeRepository_CreateRejectsAnyClash(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewCodeRepository(client, "resetd", time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, sampleCode("1234", "alice@x.com", "alice", now)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	clashes := []domain.ResetCode{
		sampleCode("1234", "bob@x.com", "bob", now),
		sampleCode("5678", "alice@x.com", "bob", now),
		sampleCode("5678", "bob@x.com", "alice", now),
	}
	for _, clash := range clashes {
		if err := repo.Create(ctx, clash); !errors.Is(err, repository.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate for %+v, got %v", clash, err)
		}
	}

	if _, err := repo.FindByCode(ctx, "5678"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected rejected code to be absent, got %v", err)
	}
}

func TestCodeRepository_FindConflict(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewCodeRepository(client, "resetd", time.Hour)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleCode("1234", "alice@x.com", "alice", time.Now())); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	cases := []struct {
		name                  string
		username, email, code string
	}{
		{name: "username", username: "alice", email: "other@x.com", code: "9999"},
		{name: "email", username: "other", email: "alice@x.com", code: "9999"},
		{name: "code", username: "other", email: "other@x.com", code: "1234"},
	}
	for _, tc := range cases {
		got, err := repo.FindConflict(ctx, tc.username, tc.email, tc.code)
		if err != nil {
			t.Fatalf("%s: FindConflict returned error: %v", tc.name, err)
		}
		if got.Code != "1234" {
			t.Fatalf("%s: expected conflict on 1234, got %s", tc.name, got.Code)
		}
	}

	if _, err := repo.FindConflict(ctx, "other", "other@x.com", "9999"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a clash, got %v", err)
	}
}

func TestCodeRepository_DeleteByCodeIsSingleUse(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewCodeRepository(client, "resetd", time.Hour)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleCode("1234", "alice@x.com", "alice", time.Now())); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	deleted, err := repo.DeleteByCode(ctx, "1234")
	if err != nil || !deleted {
		t.Fatalf("expected first delete to succeed, got %v %v", deleted, err)
	}
	deleted, err = repo.DeleteByCode(ctx, "1234")
	if err != nil || deleted {
		t.Fatalf("expected second delete to report nothing removed, got %v %v", deleted, err)
	}

	for _, key := range []string{"resetd:code:1234", "resetd:email:alice@x.com", "resetd:username:alice"} {
		if server.Exists(key) {
			t.Fatalf("expected %s to be removed", key)
		}
	}

	if err := repo.Create(ctx, sampleCode("5678", "alice@x.com", "alice", time.Now())); err != nil {
		t.Fatalf("expected a new code after consumption, got %v", err)
	}
}

func TestCodeRepository_IncrementMismatches(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewCodeRepository(client, "resetd", time.Hour)
	ctx := context.Background()

	if _, err := repo.IncrementMismatches(ctx, "1234"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing code, got %v", err)
	}

	if err := repo.Create(ctx, sampleCode("1234", "alice@x.com", "alice", time.Now())); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	for want := 1; want <= 2; want++ {
		got, err := repo.IncrementMismatches(ctx, "1234")
		if err != nil {
			t.Fatalf("IncrementMismatches returned error: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d mismatches, got %d", want, got)
		}
	}
}

// deleteBeforeEval removes key on the server just before any script runs,
// as a concurrent DeleteByCode would.
type deleteBeforeEval struct {
	server *miniredis.Miniredis
	key    string
}

func (h deleteBeforeEval) DialHook(next red.DialHook) red.DialHook { return next }

func (h deleteBeforeEval) ProcessHook(next red.ProcessHook) red.ProcessHook {
	return func(ctx context.Context, cmd red.Cmder) error {
		if name := cmd.Name(); name == "evalsha" || name == "eval" {
			h.server.Del(h.key)
		}
		return next(ctx, cmd)
	}
}

func (h deleteBeforeEval) ProcessPipelineHook(next red.ProcessPipelineHook) red.ProcessPipelineHook {
	return next
}

func TestCodeRepository_IncrementMismatchesDoesNotResurrectDeletedCode(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewCodeRepository(client, "resetd", time.Hour)
	ctx := context.Background()

	if err := repo.Create(ctx, sampleCode("4821", "alice@x.com", "alice", time.Now().Add(-2*time.Hour))); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	client.AddHook(deleteBeforeEval{server: server, key: "resetd:code:4821"})

	if _, err := repo.IncrementMismatches(ctx, "4821"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after concurrent delete, got %v", err)
	}
	if server.Exists("resetd:code:4821") {
		t.Fatalf("expected deleted code to stay deleted, keys: %v", server.Keys())
	}

	if _, err := repo.FindByCode(ctx, "4821"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected FindByCode to report ErrNotFound, got %v", err)
	}
}

func TestCodeRepository_DeleteOlderThan(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewCodeRepository(client, "resetd", 0)
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, sampleCode("1111", "old@x.com", "oldie", now.Add(-20*time.Minute))); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := repo.Create(ctx, sampleCode("2222", "new@x.com", "newbie", now.Add(-time.Minute))); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	removed, err := repo.DeleteOlderThan(ctx, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("DeleteOlderThan returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removed code, got %d", removed)
	}

	if _, err := repo.FindByCode(ctx, "1111"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected stale code removed, got %v", err)
	}
	if _, err := repo.FindByCode(ctx, "2222"); err != nil {
		t.Fatalf("expected fresh code kept, got %v", err)
	}
}
