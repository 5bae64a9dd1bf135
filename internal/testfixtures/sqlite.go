package testfixtures

import (
	"context"
	"testing"

	"github.com/example/team-calendar/internal/persistence"
	"github.com/example/team-calendar/internal/persistence/sqlite"
)

// SQLiteHarness provides migrated repositories backed by an in-memory SQLite
// database for integration-style tests.
type SQLiteHarness struct {
	Users        persistence.UserRepository
	Calendars    persistence.CalendarRepository
	Appointments persistence.AppointmentRepository
	Pauses       persistence.PauseRepository
	Tags         persistence.TagRepository
	Shares       persistence.ShareRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a fresh in-memory database
// with the schema applied. Callers may invoke Close, but the helper also
// registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	pool, err := sqlite.NewConnectionPool(sqlite.InMemoryConfig())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool, nil); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Users:        sqlite.NewUserRepository(pool),
		Calendars:    sqlite.NewCalendarRepository(pool),
		Appointments: sqlite.NewAppointmentRepository(pool),
		Pauses:       sqlite.NewPauseRepository(pool),
		Tags:         sqlite.NewTagRepository(pool),
		Shares:       sqlite.NewShareRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
