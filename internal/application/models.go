package application

import "time"

// RecursionRule enumerates the supported recurrence frequencies.
type RecursionRule string

const (
	RecursionHourly  RecursionRule = "HOURLY"
	RecursionDaily   RecursionRule = "DAILY"
	RecursionWeekly  RecursionRule = "WEEKLY"
	RecursionMonthly RecursionRule = "MONTHLY"
)

// Valid reports whether the rule is one of the recognised frequencies.
func (r RecursionRule) Valid() bool {
	switch r {
	case RecursionHourly, RecursionDaily, RecursionWeekly, RecursionMonthly:
		return true
	}
	return false
}

// ShareTypeLink identifies shares created through a share link.
const ShareTypeLink = "LINK"

// User is the service-layer view of an account. PasswordHash is never
// populated on values returned to callers.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPatch carries the only user fields an update may change. Id and
// timestamps are deliberately absent; supplying a conflicting ID through
// the service API is rejected.
type UserPatch struct {
	ID       string
	Username *string
	Email    *string
	Password *string
}

// Calendar is the service-layer view of a calendar.
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

// CalendarPatch carries the mutable calendar fields.
type CalendarPatch struct {
	ID          string
	OwnerID     string
	Name        *string
	Description *string
	Color       *string
}

// Appointment is the service-layer view of a single calendar entry.
type Appointment struct {
	ID          string
	CalendarID  string
	OwnerID     string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TagIDs      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecurrentAppointment is an appointment repeated per RecursionRule until
// RecursionEnd.
type RecurrentAppointment struct {
	ID            string
	CalendarID    string
	OwnerID       string
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	RecursionRule RecursionRule
	RecursionEnd  time.Time
	TagIDs        []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppointmentPatch carries the mutable appointment fields. Tags is
// synchronised only when non-nil.
type AppointmentPatch struct {
	ID          string
	OwnerID     string
	CalendarID  *string
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Tags        []string
	HasTags     bool
}

// RecurrentAppointmentPatch extends AppointmentPatch with recurrence bounds.
type RecurrentAppointmentPatch struct {
	AppointmentPatch
	RecursionRule *RecursionRule
	RecursionEnd  *time.Time
}

// Occurrence is one concrete instance of a recurrent appointment.
type Occurrence struct {
	RecurrentAppointmentID string
	Start                  time.Time
	End                    time.Time
}

// Pause is a closed exception interval on a recurrent appointment.
type Pause struct {
	ID                     string
	RecurrentAppointmentID string
	Start                  time.Time
	End                    time.Time
	CreatedAt              time.Time
}

// PausePatch updates one or both pause bounds in place.
type PausePatch struct {
	Start *time.Time
	End   *time.Time
}

// Tag is a user-owned label attachable to appointments.
type Tag struct {
	ID        string
	Name      string
	Color     string
	CreatedBy string
	CreatedAt time.Time
}

// TagPatch carries the mutable tag fields. CreatedBy and CreatedAt are
// immutable; conflicting values are rejected.
type TagPatch struct {
	ID        string
	CreatedBy string
	Name      *string
	Color     *string
}

// Share grants a grantee access to a calendar.
type Share struct {
	ID         string
	OwnerID    string
	CalendarID string
	GranteeID  string
	Type       string
	LinkToken  *string
	CreatedAt  time.Time
}
