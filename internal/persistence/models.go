package persistence

import "time"

// User represents an account record. Text columns hold the encoded form of
// their values; the application layer decodes on the way out.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Calendar represents a calendar owned by exactly one user.
type Calendar struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Color       string
	ImportURL   *string
	UpdateRule  *string
	PublicToken *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Appointment represents a single (non-recurring) calendar entry.
type Appointment struct {
	ID          string
	CalendarID  string
	OwnerID     string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecurrentAppointment represents a repeating calendar entry bounded by
// RecursionEnd.
type RecurrentAppointment struct {
	ID            string
	CalendarID    string
	OwnerID       string
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	RecursionRule string
	RecursionEnd  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Pause represents an exception interval suppressing occurrences of a
// recurrent appointment. Stored intervals for one recurrence never overlap.
type Pause struct {
	ID                     string
	RecurrentAppointmentID string
	Start                  time.Time
	End                    time.Time
	CreatedAt              time.Time
}

// Tag represents a label that can be attached to appointments.
type Tag struct {
	ID        string
	Name      string
	Color     string
	CreatedBy string
	CreatedAt time.Time
}

// Share grants a user read access to another user's calendar.
type Share struct {
	ID         string
	OwnerID    string
	CalendarID string
	GranteeID  string
	Type       string
	LinkToken  *string
	CreatedAt  time.Time
}
