package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/team-calendar/internal/persistence"
)

func newAuthFixture(t *testing.T) (*AuthService, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewAuthService(store, newSequentialIDs("user"), fixedNow, nil)
	return svc, store
}

func TestAuthService_CreateUser(t *testing.T) {
	t.Run("creates and blanks password", func(t *testing.T) {
		svc, store := newAuthFixture(t)

		created, err := svc.CreateUser(context.Background(), "alice", "alice@example.com", "s3cret")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if created.Username != "alice" || created.Email != "alice@example.com" {
			t.Fatalf("created = %+v", created)
		}
		if created.Password != "" {
			t.Fatal("password leaked on returned user")
		}
		record := store.users[created.ID]
		if record.PasswordHash == "" || record.PasswordHash == "s3cret" {
			t.Fatalf("stored hash = %q", record.PasswordHash)
		}
	})

	t.Run("collects all field errors at once", func(t *testing.T) {
		svc, _ := newAuthFixture(t)

		_, err := svc.CreateUser(context.Background(), "", "not-an-email", "")

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"username", "email", "password"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("missing field error for %q: %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("duplicate email is reported before duplicate username", func(t *testing.T) {
		svc, _ := newAuthFixture(t)
		ctx := context.Background()

		if _, err := svc.CreateUser(ctx, "alice", "alice@example.com", "pw"); err != nil {
			t.Fatalf("seed create: %v", err)
		}

		_, err := svc.CreateUser(ctx, "alice", "alice@example.com", "pw")
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		svc, _ := newAuthFixture(t)
		ctx := context.Background()

		if _, err := svc.CreateUser(ctx, "alice", "alice@example.com", "pw"); err != nil {
			t.Fatalf("seed create: %v", err)
		}

		_, err := svc.CreateUser(ctx, "alice", "other@example.com", "pw")
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		svc, _ := newAuthFixture(t)

		created, err := svc.CreateUser(context.Background(), "  alice  ", " alice@example.com ", "pw")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.Username != "alice" || created.Email != "alice@example.com" {
			t.Fatalf("created = %+v", created)
		}
	})

	t.Run("round-trips non-ascii username", func(t *testing.T) {
		svc, store := newAuthFixture(t)

		created, err := svc.CreateUser(context.Background(), "renée <b>", "renee@example.com", "pw")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if created.Username != "renée <b>" {
			t.Fatalf("decoded username = %q", created.Username)
		}
		stored := store.users[created.ID].Username
		if stored == created.Username {
			t.Fatalf("stored username %q was not encoded", stored)
		}

		found, err := svc.FindUserByUsername(context.Background(), "renée <b>")
		if err != nil {
			t.Fatalf("find by encoded-at-rest username: %v", err)
		}
		if found.ID != created.ID {
			t.Fatalf("found %q, want %q", found.ID, created.ID)
		}
	})
}

func TestAuthService_UpdateUser(t *testing.T) {
	seed := func(t *testing.T) (*AuthService, *memStore, User) {
		t.Helper()
		svc, store := newAuthFixture(t)
		created, err := svc.CreateUser(context.Background(), "alice", "alice@example.com", "pw")
		if err != nil {
			t.Fatalf("seed create: %v", err)
		}
		return svc, store, created
	}

	t.Run("updates allow-listed fields", func(t *testing.T) {
		svc, _, created := seed(t)

		username, email := "alice2", "alice2@example.com"
		updated, err := svc.UpdateUser(context.Background(), created.ID, UserPatch{Username: &username, Email: &email})
		if err != nil {
			t.Fatalf("update: %v", err)
		}

		if updated.Username != "alice2" || updated.Email != "alice2@example.com" {
			t.Fatalf("updated = %+v", updated)
		}
	})

	t.Run("conflicting id in patch is forbidden", func(t *testing.T) {
		svc, _, created := seed(t)

		username := "eve"
		_, err := svc.UpdateUser(context.Background(), created.ID, UserPatch{ID: "user-other", Username: &username})

		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("password change rehashes", func(t *testing.T) {
		svc, store, created := seed(t)
		before := store.users[created.ID].PasswordHash

		password := "new-pw"
		if _, err := svc.UpdateUser(context.Background(), created.ID, UserPatch{Password: &password}); err != nil {
			t.Fatalf("update: %v", err)
		}

		if store.users[created.ID].PasswordHash == before {
			t.Fatal("password hash unchanged")
		}
		if _, err := svc.VerifyPassword(context.Background(), "alice@example.com", "new-pw"); err != nil {
			t.Fatalf("verify new password: %v", err)
		}
	})

	t.Run("missing user yields not found", func(t *testing.T) {
		svc, _ := newAuthFixture(t)

		username := "ghost"
		_, err := svc.UpdateUser(context.Background(), "user-missing", UserPatch{Username: &username})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unsafe id is a validation error", func(t *testing.T) {
		svc, _ := newAuthFixture(t)

		_, err := svc.UpdateUser(context.Background(), "id; DROP TABLE users", UserPatch{})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestAuthService_VerifyPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "alice", "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}

	t.Run("accepts correct credentials", func(t *testing.T) {
		user, err := svc.VerifyPassword(ctx, "alice@example.com", "pw")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if user.ID != created.ID {
			t.Fatalf("user id = %q", user.ID)
		}
		if user.Password != "" {
			t.Fatal("password leaked")
		}
	})

	t.Run("wrong password yields invalid credentials", func(t *testing.T) {
		if _, err := svc.VerifyPassword(ctx, "alice@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email yields invalid credentials", func(t *testing.T) {
		if _, err := svc.VerifyPassword(ctx, "ghost@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_DeleteUser(t *testing.T) {
	t.Run("delete cascades to owned calendars", func(t *testing.T) {
		svc, store := newAuthFixture(t)
		created, err := svc.CreateUser(context.Background(), "alice", "alice@example.com", "pw")
		if err != nil {
			t.Fatalf("seed create: %v", err)
		}
		store.calendars["cal-1"] = persistence.Calendar{ID: "cal-1", OwnerID: created.ID}
		store.appointments["appt-1"] = persistence.Appointment{ID: "appt-1", CalendarID: "cal-1", OwnerID: created.ID}

		if err := svc.DeleteUser(context.Background(), created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		if len(store.users) != 0 || len(store.calendars) != 0 || len(store.appointments) != 0 {
			t.Fatalf("leftovers: users=%d calendars=%d appointments=%d", len(store.users), len(store.calendars), len(store.appointments))
		}
	})

	t.Run("missing user yields not found", func(t *testing.T) {
		svc, _ := newAuthFixture(t)

		if err := svc.DeleteUser(context.Background(), "user-missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
