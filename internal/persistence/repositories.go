package persistence

import "context"

// UserRepository is the storage contract consumed by the auth service.
// Absent records surface as ErrNotFound, never as nil results.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, user User) error
	DeleteUser(ctx context.Context, id string) error
}

// CalendarRepository is the storage contract for calendars.
type CalendarRepository interface {
	CreateCalendar(ctx context.Context, calendar Calendar) error
	GetCalendar(ctx context.Context, id string) (Calendar, error)
	ListCalendarsByOwner(ctx context.Context, ownerID string) ([]Calendar, error)
	UpdateCalendar(ctx context.Context, calendar Calendar) error
	DeleteCalendar(ctx context.Context, id string) error
}

// AppointmentRepository covers both appointment kinds and their tag links.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appointment Appointment) error
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	ListAppointmentsByCalendar(ctx context.Context, calendarID string) ([]Appointment, error)
	UpdateAppointment(ctx context.Context, appointment Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	CreateRecurrentAppointment(ctx context.Context, appointment RecurrentAppointment) error
	GetRecurrentAppointment(ctx context.Context, id string) (RecurrentAppointment, error)
	ListRecurrentAppointmentsByCalendar(ctx context.Context, calendarID string) ([]RecurrentAppointment, error)
	UpdateRecurrentAppointment(ctx context.Context, appointment RecurrentAppointment) error
	DeleteRecurrentAppointment(ctx context.Context, id string) error

	ListTagIDsForAppointment(ctx context.Context, appointmentID string) ([]string, error)
	AddTagToAppointment(ctx context.Context, appointmentID, tagID string) error
	RemoveTagFromAppointment(ctx context.Context, appointmentID, tagID string) error
	ClearTagsForAppointment(ctx context.Context, appointmentID string) error
}

// PauseRepository is the storage contract for recurrence exception intervals.
type PauseRepository interface {
	CreatePause(ctx context.Context, pause Pause) error
	GetPause(ctx context.Context, id string) (Pause, error)
	ListPausesByRecurrentAppointment(ctx context.Context, recurrentAppointmentID string) ([]Pause, error)
	UpdatePause(ctx context.Context, pause Pause) error
	DeletePause(ctx context.Context, id string) error
	// ReplacePauses deletes the identified pauses and inserts the merged
	// replacement within one transaction.
	ReplacePauses(ctx context.Context, deleteIDs []string, replacement Pause) error
}

// TagRepository is the storage contract for tags.
type TagRepository interface {
	CreateTag(ctx context.Context, tag Tag) error
	GetTag(ctx context.Context, id string) (Tag, error)
	ListTagsByOwner(ctx context.Context, ownerID string) ([]Tag, error)
	UpdateTag(ctx context.Context, tag Tag) error
	DeleteTag(ctx context.Context, id string) error
}

// ShareRepository is the storage contract for calendar shares.
type ShareRepository interface {
	CreateShare(ctx context.Context, share Share) error
	GetShare(ctx context.Context, id string) (Share, error)
	GetShareByCalendarAndGrantee(ctx context.Context, calendarID, granteeID string) (Share, error)
	ListSharesByCalendar(ctx context.Context, calendarID string) ([]Share, error)
	ListSharesByGrantee(ctx context.Context, granteeID string) ([]Share, error)
	DeleteShare(ctx context.Context, id string) error
}
