package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/team-calendar/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()
	pool, err := NewConnectionPool(InMemoryConfig())
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	if err := Migrate(context.Background(), pool, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func testTime(d int) time.Time {
	return time.Date(2025, time.March, d, 9, 0, 0, 0, time.UTC)
}

func seedUser(t *testing.T, pool *ConnectionPool, id, username, email string) {
	t.Helper()
	repo := NewUserRepository(pool)
	err := repo.CreateUser(context.Background(), persistence.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    testTime(1),
		UpdatedAt:    testTime(1),
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func seedCalendar(t *testing.T, pool *ConnectionPool, id, ownerID string) {
	t.Helper()
	repo := NewCalendarRepository(pool)
	err := repo.CreateCalendar(context.Background(), persistence.Calendar{
		ID:        id,
		OwnerID:   ownerID,
		Name:      "Work",
		CreatedAt: testTime(1),
		UpdatedAt: testTime(1),
	})
	if err != nil {
		t.Fatalf("seed calendar %s: %v", id, err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	pool := newTestPool(t)

	if err := Migrate(context.Background(), pool, nil); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUserRepository(t *testing.T) {
	t.Run("create and get round-trip", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewUserRepository(pool)
		seedUser(t, pool, "user-1", "alice", "alice@example.com")

		user, err := repo.GetUser(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if user.Username != "alice" || user.Email != "alice@example.com" {
			t.Fatalf("user = %+v", user)
		}
		if !user.CreatedAt.Equal(testTime(1)) {
			t.Fatalf("created_at = %v", user.CreatedAt)
		}
	})

	t.Run("duplicate email maps to ErrDuplicate", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewUserRepository(pool)
		seedUser(t, pool, "user-1", "alice", "alice@example.com")

		err := repo.CreateUser(context.Background(), persistence.User{
			ID:           "user-2",
			Username:     "alice2",
			Email:        "alice@example.com",
			PasswordHash: "hash",
			CreatedAt:    testTime(1),
			UpdatedAt:    testTime(1),
		})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("duplicate username maps to ErrDuplicate", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewUserRepository(pool)
		seedUser(t, pool, "user-1", "alice", "alice@example.com")

		err := repo.CreateUser(context.Background(), persistence.User{
			ID:           "user-2",
			Username:     "alice",
			Email:        "other@example.com",
			PasswordHash: "hash",
			CreatedAt:    testTime(1),
			UpdatedAt:    testTime(1),
		})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("lookup by username and email", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewUserRepository(pool)
		seedUser(t, pool, "user-1", "alice", "alice@example.com")

		byName, err := repo.GetUserByUsername(context.Background(), "alice")
		if err != nil || byName.ID != "user-1" {
			t.Fatalf("by username: %v, %+v", err, byName)
		}
		byEmail, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
		if err != nil || byEmail.ID != "user-1" {
			t.Fatalf("by email: %v, %+v", err, byEmail)
		}
	})

	t.Run("missing user yields ErrNotFound", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewUserRepository(pool)

		if _, err := repo.GetUser(context.Background(), "user-missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := repo.DeleteUser(context.Background(), "user-missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete cascades to calendars and appointments", func(t *testing.T) {
		pool := newTestPool(t)
		users := NewUserRepository(pool)
		calendars := NewCalendarRepository(pool)
		appointments := NewAppointmentRepository(pool)
		ctx := context.Background()

		seedUser(t, pool, "user-1", "alice", "alice@example.com")
		seedCalendar(t, pool, "cal-1", "user-1")
		err := appointments.CreateAppointment(ctx, persistence.Appointment{
			ID:         "appt-1",
			CalendarID: "cal-1",
			OwnerID:    "user-1",
			Title:      "Standup",
			Start:      testTime(2),
			End:        testTime(3),
			CreatedAt:  testTime(1),
			UpdatedAt:  testTime(1),
		})
		if err != nil {
			t.Fatalf("create appointment: %v", err)
		}

		if err := users.DeleteUser(ctx, "user-1"); err != nil {
			t.Fatalf("delete user: %v", err)
		}

		if _, err := calendars.GetCalendar(ctx, "cal-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("calendar survived cascade: %v", err)
		}
		if _, err := appointments.GetAppointment(ctx, "appt-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("appointment survived cascade: %v", err)
		}
	})
}

func TestCalendarRepository(t *testing.T) {
	t.Run("unknown owner maps to ErrForeignKeyViolation", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewCalendarRepository(pool)

		err := repo.CreateCalendar(context.Background(), persistence.Calendar{
			ID:        "cal-1",
			OwnerID:   "user-missing",
			Name:      "Orphan",
			CreatedAt: testTime(1),
			UpdatedAt: testTime(1),
		})
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("optional columns round-trip", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewCalendarRepository(pool)
		seedUser(t, pool, "user-1", "alice", "alice@example.com")

		importURL := "https://example.com/feed.ics"
		err := repo.CreateCalendar(context.Background(), persistence.Calendar{
			ID:        "cal-1",
			OwnerID:   "user-1",
			Name:      "Feed",
			ImportURL: &importURL,
			CreatedAt: testTime(1),
			UpdatedAt: testTime(1),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		calendar, err := repo.GetCalendar(context.Background(), "cal-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if calendar.ImportURL == nil || *calendar.ImportURL != importURL {
			t.Fatalf("import url = %v", calendar.ImportURL)
		}
		if calendar.PublicToken != nil {
			t.Fatalf("public token = %v", calendar.PublicToken)
		}
	})

	t.Run("list is ordered by creation", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewCalendarRepository(pool)
		seedUser(t, pool, "user-1", "alice", "alice@example.com")
		ctx := context.Background()

		for i, id := range []string{"cal-b", "cal-a"} {
			err := repo.CreateCalendar(ctx, persistence.Calendar{
				ID:        id,
				OwnerID:   "user-1",
				Name:      id,
				CreatedAt: testTime(i + 1),
				UpdatedAt: testTime(i + 1),
			})
			if err != nil {
				t.Fatalf("create %s: %v", id, err)
			}
		}

		calendars, err := repo.ListCalendarsByOwner(ctx, "user-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(calendars) != 2 || calendars[0].ID != "cal-b" || calendars[1].ID != "cal-a" {
			t.Fatalf("order = %+v", calendars)
		}
	})
}

func TestAppointmentRepository_Tags(t *testing.T) {
	pool := newTestPool(t)
	appointments := NewAppointmentRepository(pool)
	tags := NewTagRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, "user-1", "alice", "alice@example.com")
	seedCalendar(t, pool, "cal-1", "user-1")
	err := appointments.CreateAppointment(ctx, persistence.Appointment{
		ID:         "appt-1",
		CalendarID: "cal-1",
		OwnerID:    "user-1",
		Title:      "Tagged",
		Start:      testTime(2),
		End:        testTime(3),
		CreatedAt:  testTime(1),
		UpdatedAt:  testTime(1),
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	for _, id := range []string{"tag-a", "tag-b"} {
		err := tags.CreateTag(ctx, persistence.Tag{
			ID:        id,
			Name:      id,
			Color:     "#FFFFFF",
			CreatedBy: "user-1",
			CreatedAt: testTime(1),
		})
		if err != nil {
			t.Fatalf("create tag %s: %v", id, err)
		}
	}

	if err := appointments.AddTagToAppointment(ctx, "appt-1", "tag-a"); err != nil {
		t.Fatalf("add tag-a: %v", err)
	}
	if err := appointments.AddTagToAppointment(ctx, "appt-1", "tag-b"); err != nil {
		t.Fatalf("add tag-b: %v", err)
	}
	// Re-adding an existing link must not fail.
	if err := appointments.AddTagToAppointment(ctx, "appt-1", "tag-a"); err != nil {
		t.Fatalf("re-add tag-a: %v", err)
	}

	ids, err := appointments.ListTagIDsForAppointment(ctx, "appt-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("tag ids = %v", ids)
	}

	if err := appointments.RemoveTagFromAppointment(ctx, "appt-1", "tag-a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, err = appointments.ListTagIDsForAppointment(ctx, "appt-1")
	if err != nil {
		t.Fatalf("list after remove: %v", err)
	}
	if len(ids) != 1 || ids[0] != "tag-b" {
		t.Fatalf("tag ids = %v", ids)
	}

	// Deleting a tag drops its links through the cascade.
	if err := tags.DeleteTag(ctx, "tag-b"); err != nil {
		t.Fatalf("delete tag: %v", err)
	}
	ids, err = appointments.ListTagIDsForAppointment(ctx, "appt-1")
	if err != nil {
		t.Fatalf("list after tag delete: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("tag ids = %v", ids)
	}

	// Linking a missing tag is a foreign key violation.
	if err := appointments.AddTagToAppointment(ctx, "appt-1", "tag-missing"); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	// So is linking an appointment id that matches neither appointment kind.
	if err := appointments.AddTagToAppointment(ctx, "appt-missing", "tag-a"); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation for unknown appointment, got %v", err)
	}

	// The join table serves recurrent appointments through the same methods.
	err = appointments.CreateRecurrentAppointment(ctx, persistence.RecurrentAppointment{
		ID:            "rec-1",
		CalendarID:    "cal-1",
		OwnerID:       "user-1",
		Title:         "Tagged recurrence",
		Start:         testTime(2),
		End:           testTime(3),
		RecursionRule: "DAILY",
		RecursionEnd:  testTime(30),
		CreatedAt:     testTime(1),
		UpdatedAt:     testTime(1),
	})
	if err != nil {
		t.Fatalf("create recurrent appointment: %v", err)
	}
	if err := appointments.AddTagToAppointment(ctx, "rec-1", "tag-a"); err != nil {
		t.Fatalf("add tag to recurrent appointment: %v", err)
	}
	ids, err = appointments.ListTagIDsForAppointment(ctx, "rec-1")
	if err != nil {
		t.Fatalf("list recurrent tags: %v", err)
	}
	if len(ids) != 1 || ids[0] != "tag-a" {
		t.Fatalf("recurrent tag ids = %v", ids)
	}

	// Deleting the recurrent appointment clears its links.
	if err := appointments.DeleteRecurrentAppointment(ctx, "rec-1"); err != nil {
		t.Fatalf("delete recurrent appointment: %v", err)
	}
	ids, err = appointments.ListTagIDsForAppointment(ctx, "rec-1")
	if err != nil {
		t.Fatalf("list after recurrent delete: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("tag ids after recurrent delete = %v", ids)
	}
}

func TestPauseRepository(t *testing.T) {
	seedRecurrence := func(t *testing.T, pool *ConnectionPool) {
		t.Helper()
		repo := NewAppointmentRepository(pool)
		seedUser(t, pool, "user-1", "alice", "alice@example.com")
		seedCalendar(t, pool, "cal-1", "user-1")
		err := repo.CreateRecurrentAppointment(context.Background(), persistence.RecurrentAppointment{
			ID:            "rec-1",
			CalendarID:    "cal-1",
			OwnerID:       "user-1",
			Title:         "Weekly",
			Start:         testTime(2),
			End:           testTime(3),
			RecursionRule: "WEEKLY",
			RecursionEnd:  testTime(30),
			CreatedAt:     testTime(1),
			UpdatedAt:     testTime(1),
		})
		if err != nil {
			t.Fatalf("seed recurrence: %v", err)
		}
	}

	t.Run("inverted bounds violate the check constraint", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewPauseRepository(pool)
		seedRecurrence(t, pool)

		err := repo.CreatePause(context.Background(), persistence.Pause{
			ID:                     "pause-1",
			RecurrentAppointmentID: "rec-1",
			Start:                  testTime(10),
			End:                    testTime(5),
			CreatedAt:              testTime(1),
		})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("replace swaps absorbed pauses for the merged interval", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewPauseRepository(pool)
		seedRecurrence(t, pool)
		ctx := context.Background()

		for i, bounds := range [][2]int{{1, 5}, {10, 15}} {
			err := repo.CreatePause(ctx, persistence.Pause{
				ID:                     []string{"pause-1", "pause-2"}[i],
				RecurrentAppointmentID: "rec-1",
				Start:                  testTime(bounds[0]),
				End:                    testTime(bounds[1]),
				CreatedAt:              testTime(1),
			})
			if err != nil {
				t.Fatalf("create pause %d: %v", i, err)
			}
		}

		err := repo.ReplacePauses(ctx, []string{"pause-1", "pause-2"}, persistence.Pause{
			ID:                     "pause-3",
			RecurrentAppointmentID: "rec-1",
			Start:                  testTime(1),
			End:                    testTime(15),
			CreatedAt:              testTime(1),
		})
		if err != nil {
			t.Fatalf("replace: %v", err)
		}

		pauses, err := repo.ListPausesByRecurrentAppointment(ctx, "rec-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(pauses) != 1 || pauses[0].ID != "pause-3" {
			t.Fatalf("pauses = %+v", pauses)
		}
		if !pauses[0].Start.Equal(testTime(1)) || !pauses[0].End.Equal(testTime(15)) {
			t.Fatalf("merged bounds = [%v, %v]", pauses[0].Start, pauses[0].End)
		}
	})

	t.Run("deleting the recurrence cascades to pauses", func(t *testing.T) {
		pool := newTestPool(t)
		pauses := NewPauseRepository(pool)
		appointments := NewAppointmentRepository(pool)
		seedRecurrence(t, pool)
		ctx := context.Background()

		err := pauses.CreatePause(ctx, persistence.Pause{
			ID:                     "pause-1",
			RecurrentAppointmentID: "rec-1",
			Start:                  testTime(1),
			End:                    testTime(5),
			CreatedAt:              testTime(1),
		})
		if err != nil {
			t.Fatalf("create pause: %v", err)
		}

		if err := appointments.DeleteRecurrentAppointment(ctx, "rec-1"); err != nil {
			t.Fatalf("delete recurrence: %v", err)
		}
		if _, err := pauses.GetPause(ctx, "pause-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("pause survived cascade: %v", err)
		}
	})
}

func TestShareRepository(t *testing.T) {
	seedShareWorld := func(t *testing.T, pool *ConnectionPool) {
		t.Helper()
		seedUser(t, pool, "user-1", "alice", "alice@example.com")
		seedUser(t, pool, "user-2", "bob", "bob@example.com")
		seedCalendar(t, pool, "cal-1", "user-1")
	}

	token := "share-token"

	t.Run("create and lookup by pair", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewShareRepository(pool)
		seedShareWorld(t, pool)
		ctx := context.Background()

		err := repo.CreateShare(ctx, persistence.Share{
			ID:         "share-1",
			OwnerID:    "user-1",
			CalendarID: "cal-1",
			GranteeID:  "user-2",
			Type:       "LINK",
			LinkToken:  &token,
			CreatedAt:  testTime(1),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		share, err := repo.GetShareByCalendarAndGrantee(ctx, "cal-1", "user-2")
		if err != nil {
			t.Fatalf("get by pair: %v", err)
		}
		if share.ID != "share-1" || share.LinkToken == nil || *share.LinkToken != token {
			t.Fatalf("share = %+v", share)
		}
	})

	t.Run("repeated grant maps to ErrDuplicate", func(t *testing.T) {
		pool := newTestPool(t)
		repo := NewShareRepository(pool)
		seedShareWorld(t, pool)
		ctx := context.Background()

		base := persistence.Share{
			OwnerID:    "user-1",
			CalendarID: "cal-1",
			GranteeID:  "user-2",
			Type:       "LINK",
			LinkToken:  &token,
			CreatedAt:  testTime(1),
		}
		first := base
		first.ID = "share-1"
		if err := repo.CreateShare(ctx, first); err != nil {
			t.Fatalf("first create: %v", err)
		}
		second := base
		second.ID = "share-2"
		if err := repo.CreateShare(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("deleting the calendar cascades to shares", func(t *testing.T) {
		pool := newTestPool(t)
		shares := NewShareRepository(pool)
		calendars := NewCalendarRepository(pool)
		seedShareWorld(t, pool)
		ctx := context.Background()

		err := shares.CreateShare(ctx, persistence.Share{
			ID:         "share-1",
			OwnerID:    "user-1",
			CalendarID: "cal-1",
			GranteeID:  "user-2",
			Type:       "LINK",
			LinkToken:  &token,
			CreatedAt:  testTime(1),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if err := calendars.DeleteCalendar(ctx, "cal-1"); err != nil {
			t.Fatalf("delete calendar: %v", err)
		}
		listed, err := shares.ListSharesByGrantee(ctx, "user-2")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(listed) != 0 {
			t.Fatalf("shares survived cascade: %+v", listed)
		}
	})
}
