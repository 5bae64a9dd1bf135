// Package testfixtures provides deterministic clocks, identifier generators
// and entity fixtures shared by service and persistence tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/team-calendar/internal/persistence"
)

var (
	userCounter        uint64
	calendarCounter    uint64
	appointmentCounter uint64
	recurrentCounter   uint64
	pauseCounter       uint64
	tagCounter         uint64
	shareCounter       uint64
)

var referenceTime = time.Date(2025, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures a generated user record.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user record with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:           id,
		Username:     id,
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) {
		u.ID = id
	}
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(u *persistence.User) {
		u.Username = username
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) {
		u.Email = email
	}
}

// WithPasswordHash overrides the generated password hash.
func WithPasswordHash(hash string) UserOption {
	return func(u *persistence.User) {
		u.PasswordHash = hash
	}
}

// --------------------------- Calendar fixtures ---------------------------

// CalendarOption configures a generated calendar record.
type CalendarOption func(*persistence.Calendar)

// NewCalendarFixture returns a deterministic calendar record owned by the
// given user.
func NewCalendarFixture(ownerID string, opts ...CalendarOption) persistence.Calendar {
	idx := atomic.AddUint64(&calendarCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	calendar := persistence.Calendar{
		ID:        fmt.Sprintf("cal-%03d", idx),
		OwnerID:   ownerID,
		Name:      fmt.Sprintf("Calendar %03d", idx),
		Color:     "#336699",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&calendar)
	}
	return calendar
}

// WithCalendarID overrides the generated calendar ID.
func WithCalendarID(id string) CalendarOption {
	return func(c *persistence.Calendar) {
		c.ID = id
	}
}

// WithCalendarName overrides the generated calendar name.
func WithCalendarName(name string) CalendarOption {
	return func(c *persistence.Calendar) {
		c.Name = name
	}
}

// WithImportURL sets the calendar's import source.
func WithImportURL(url string) CalendarOption {
	return func(c *persistence.Calendar) {
		c.ImportURL = &url
	}
}

// -------------------------- Appointment fixtures -------------------------

// AppointmentOption configures a generated appointment record.
type AppointmentOption func(*persistence.Appointment)

// NewAppointmentFixture returns a deterministic one hour appointment in the
// given calendar.
func NewAppointmentFixture(calendarID, ownerID string, opts ...AppointmentOption) persistence.Appointment {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	appointment := persistence.Appointment{
		ID:         fmt.Sprintf("appt-%03d", idx),
		CalendarID: calendarID,
		OwnerID:    ownerID,
		Title:      fmt.Sprintf("Appointment %03d", idx),
		Start:      start,
		End:        start.Add(time.Hour),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&appointment)
	}
	return appointment
}

// WithAppointmentID overrides the generated appointment ID.
func WithAppointmentID(id string) AppointmentOption {
	return func(a *persistence.Appointment) {
		a.ID = id
	}
}

// WithAppointmentWindow sets the appointment bounds.
func WithAppointmentWindow(start, end time.Time) AppointmentOption {
	return func(a *persistence.Appointment) {
		a.Start = start
		a.End = end
	}
}

// RecurrentOption configures a generated recurrent appointment record.
type RecurrentOption func(*persistence.RecurrentAppointment)

// NewRecurrentFixture returns a deterministic daily recurrence in the given
// calendar, running for thirty days.
func NewRecurrentFixture(calendarID, ownerID string, opts ...RecurrentOption) persistence.RecurrentAppointment {
	idx := atomic.AddUint64(&recurrentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	recurrent := persistence.RecurrentAppointment{
		ID:            fmt.Sprintf("rec-%03d", idx),
		CalendarID:    calendarID,
		OwnerID:       ownerID,
		Title:         fmt.Sprintf("Recurrence %03d", idx),
		Start:         start,
		End:           start.Add(time.Hour),
		RecursionRule: "DAILY",
		RecursionEnd:  start.Add(30 * 24 * time.Hour),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	for _, opt := range opts {
		opt(&recurrent)
	}
	return recurrent
}

// WithRecurrentID overrides the generated recurrence ID.
func WithRecurrentID(id string) RecurrentOption {
	return func(r *persistence.RecurrentAppointment) {
		r.ID = id
	}
}

// WithRecursionRule sets the recurrence frequency.
func WithRecursionRule(rule string) RecurrentOption {
	return func(r *persistence.RecurrentAppointment) {
		r.RecursionRule = rule
	}
}

// ----------------------------- Pause fixtures ----------------------------

// PauseOption configures a generated pause record.
type PauseOption func(*persistence.Pause)

// NewPauseFixture returns a deterministic seven day pause on the given
// recurrence.
func NewPauseFixture(recurrentAppointmentID string, opts ...PauseOption) persistence.Pause {
	idx := atomic.AddUint64(&pauseCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	pause := persistence.Pause{
		ID:                     fmt.Sprintf("pause-%03d", idx),
		RecurrentAppointmentID: recurrentAppointmentID,
		Start:                  start,
		End:                    start.Add(7 * 24 * time.Hour),
		CreatedAt:              referenceTime,
	}
	for _, opt := range opts {
		opt(&pause)
	}
	return pause
}

// WithPauseWindow sets the pause bounds.
func WithPauseWindow(start, end time.Time) PauseOption {
	return func(p *persistence.Pause) {
		p.Start = start
		p.End = end
	}
}

// ------------------------------ Tag fixtures -----------------------------

// TagOption configures a generated tag record.
type TagOption func(*persistence.Tag)

// NewTagFixture returns a deterministic tag created by the given user.
func NewTagFixture(createdBy string, opts ...TagOption) persistence.Tag {
	idx := atomic.AddUint64(&tagCounter, 1)
	tag := persistence.Tag{
		ID:        fmt.Sprintf("tag-%03d", idx),
		Name:      fmt.Sprintf("tag %03d", idx),
		Color:     "#FF8800",
		CreatedBy: createdBy,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&tag)
	}
	return tag
}

// WithTagName overrides the generated tag name.
func WithTagName(name string) TagOption {
	return func(tg *persistence.Tag) {
		tg.Name = name
	}
}

// WithTagColor overrides the generated tag color.
func WithTagColor(color string) TagOption {
	return func(tg *persistence.Tag) {
		tg.Color = color
	}
}

// ----------------------------- Share fixtures ----------------------------

// ShareOption configures a generated share record.
type ShareOption func(*persistence.Share)

// NewShareFixture returns a deterministic link share of the given calendar.
func NewShareFixture(ownerID, calendarID, granteeID string, opts ...ShareOption) persistence.Share {
	idx := atomic.AddUint64(&shareCounter, 1)
	token := fmt.Sprintf("token-%03d", idx)
	share := persistence.Share{
		ID:         fmt.Sprintf("share-%03d", idx),
		OwnerID:    ownerID,
		CalendarID: calendarID,
		GranteeID:  granteeID,
		Type:       "LINK",
		LinkToken:  &token,
		CreatedAt:  referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&share)
	}
	return share
}
