package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/team-calendar/internal/application"
	"github.com/example/team-calendar/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// NewAuthService builds an auth service on the supplied repository with the
// factory's deterministic clock and identifiers.
func (f *ServiceFactory) NewAuthService(users persistence.UserRepository, logger *slog.Logger) *application.AuthService {
	return application.NewAuthService(users, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewCalendarService builds a calendar service.
func (f *ServiceFactory) NewCalendarService(calendars persistence.CalendarRepository, users persistence.UserRepository, logger *slog.Logger) *application.CalendarService {
	return application.NewCalendarService(calendars, users, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewTagService builds a tag service.
func (f *ServiceFactory) NewTagService(tags persistence.TagRepository, logger *slog.Logger) *application.TagService {
	return application.NewTagService(tags, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewAppointmentService builds an appointment service.
func (f *ServiceFactory) NewAppointmentService(appointments persistence.AppointmentRepository, calendars persistence.CalendarRepository, logger *slog.Logger) *application.AppointmentService {
	return application.NewAppointmentService(appointments, calendars, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewPauseService builds a pause service.
func (f *ServiceFactory) NewPauseService(pauses persistence.PauseRepository, appointments persistence.AppointmentRepository, logger *slog.Logger) *application.PauseService {
	return application.NewPauseService(pauses, appointments, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewShareService builds a share service. Share identifiers and link tokens
// draw from the same deterministic sequence.
func (f *ServiceFactory) NewShareService(shares persistence.ShareRepository, calendars persistence.CalendarRepository, logger *slog.Logger) *application.ShareService {
	return application.NewShareService(shares, calendars, f.IDGenerator.NextFunc(), f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewTokenService builds a token service with an in-memory revocation store
// driven by the factory clock.
func (f *ServiceFactory) NewTokenService(secret string, ttl time.Duration) *application.TokenService {
	now := f.Clock.NowFunc()
	return application.NewTokenService(secret, ttl, application.NewMemoryRevocationStore(now), now)
}
