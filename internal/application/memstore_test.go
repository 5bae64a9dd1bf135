package application

import (
	"context"
	"sort"
	"sync"

	"github.com/example/team-calendar/internal/persistence"
)

// memStore is a hand-rolled in-memory implementation of the persistence
// contracts used across the service tests.
type memStore struct {
	mu           sync.Mutex
	users        map[string]persistence.User
	calendars    map[string]persistence.Calendar
	appointments map[string]persistence.Appointment
	recurrents   map[string]persistence.RecurrentAppointment
	pauses       map[string]persistence.Pause
	pauseOrder   []string
	tags         map[string]persistence.Tag
	tagLinks     map[string]map[string]struct{}
	shares       map[string]persistence.Share
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]persistence.User),
		calendars:    make(map[string]persistence.Calendar),
		appointments: make(map[string]persistence.Appointment),
		recurrents:   make(map[string]persistence.RecurrentAppointment),
		pauses:       make(map[string]persistence.Pause),
		tags:         make(map[string]persistence.Tag),
		tagLinks:     make(map[string]map[string]struct{}),
		shares:       make(map[string]persistence.Share),
	}
}

// --- persistence.UserRepository ---

func (m *memStore) CreateUser(ctx context.Context, user persistence.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id string) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (m *memStore) UpdateUser(ctx context.Context, user persistence.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.users, id)
	for calID, cal := range m.calendars {
		if cal.OwnerID != id {
			continue
		}
		delete(m.calendars, calID)
		for apptID, appt := range m.appointments {
			if appt.CalendarID == calID {
				delete(m.appointments, apptID)
			}
		}
		for apptID, appt := range m.recurrents {
			if appt.CalendarID == calID {
				delete(m.recurrents, apptID)
			}
		}
	}
	return nil
}

// --- persistence.CalendarRepository ---

func (m *memStore) CreateCalendar(ctx context.Context, calendar persistence.Calendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[calendar.OwnerID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	m.calendars[calendar.ID] = calendar
	return nil
}

func (m *memStore) GetCalendar(ctx context.Context, id string) (persistence.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	calendar, ok := m.calendars[id]
	if !ok {
		return persistence.Calendar{}, persistence.ErrNotFound
	}
	return calendar, nil
}

func (m *memStore) ListCalendarsByOwner(ctx context.Context, ownerID string) ([]persistence.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Calendar
	for _, calendar := range m.calendars {
		if calendar.OwnerID == ownerID {
			out = append(out, calendar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateCalendar(ctx context.Context, calendar persistence.Calendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.calendars[calendar.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.calendars[calendar.ID] = calendar
	return nil
}

func (m *memStore) DeleteCalendar(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.calendars[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.calendars, id)
	for apptID, appt := range m.appointments {
		if appt.CalendarID == id {
			delete(m.appointments, apptID)
		}
	}
	for apptID, appt := range m.recurrents {
		if appt.CalendarID == id {
			delete(m.recurrents, apptID)
		}
	}
	return nil
}

// --- persistence.AppointmentRepository ---

func (m *memStore) CreateAppointment(ctx context.Context, appointment persistence.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[appointment.ID] = appointment
	return nil
}

func (m *memStore) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appointment, ok := m.appointments[id]
	if !ok {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	return appointment, nil
}

func (m *memStore) ListAppointmentsByCalendar(ctx context.Context, calendarID string) ([]persistence.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Appointment
	for _, appointment := range m.appointments {
		if appointment.CalendarID == calendarID {
			out = append(out, appointment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateAppointment(ctx context.Context, appointment persistence.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[appointment.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.appointments[appointment.ID] = appointment
	return nil
}

func (m *memStore) DeleteAppointment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *memStore) CreateRecurrentAppointment(ctx context.Context, appointment persistence.RecurrentAppointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recurrents[appointment.ID] = appointment
	return nil
}

func (m *memStore) GetRecurrentAppointment(ctx context.Context, id string) (persistence.RecurrentAppointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appointment, ok := m.recurrents[id]
	if !ok {
		return persistence.RecurrentAppointment{}, persistence.ErrNotFound
	}
	return appointment, nil
}

func (m *memStore) ListRecurrentAppointmentsByCalendar(ctx context.Context, calendarID string) ([]persistence.RecurrentAppointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.RecurrentAppointment
	for _, appointment := range m.recurrents {
		if appointment.CalendarID == calendarID {
			out = append(out, appointment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateRecurrentAppointment(ctx context.Context, appointment persistence.RecurrentAppointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recurrents[appointment.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.recurrents[appointment.ID] = appointment
	return nil
}

func (m *memStore) DeleteRecurrentAppointment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recurrents[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.recurrents, id)
	return nil
}

func (m *memStore) ListTagIDsForAppointment(ctx context.Context, appointmentID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := m.tagLinks[appointmentID]
	out := make([]string, 0, len(links))
	for id := range links {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) AddTagToAppointment(ctx context.Context, appointmentID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tagLinks[appointmentID] == nil {
		m.tagLinks[appointmentID] = make(map[string]struct{})
	}
	m.tagLinks[appointmentID][tagID] = struct{}{}
	return nil
}

func (m *memStore) RemoveTagFromAppointment(ctx context.Context, appointmentID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tagLinks[appointmentID], tagID)
	return nil
}

func (m *memStore) ClearTagsForAppointment(ctx context.Context, appointmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tagLinks, appointmentID)
	return nil
}

// --- persistence.PauseRepository ---

func (m *memStore) CreatePause(ctx context.Context, pause persistence.Pause) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses[pause.ID] = pause
	m.pauseOrder = append(m.pauseOrder, pause.ID)
	return nil
}

func (m *memStore) GetPause(ctx context.Context, id string) (persistence.Pause, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pause, ok := m.pauses[id]
	if !ok {
		return persistence.Pause{}, persistence.ErrNotFound
	}
	return pause, nil
}

func (m *memStore) ListPausesByRecurrentAppointment(ctx context.Context, recurrentAppointmentID string) ([]persistence.Pause, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Pause
	for _, id := range m.pauseOrder {
		pause, ok := m.pauses[id]
		if ok && pause.RecurrentAppointmentID == recurrentAppointmentID {
			out = append(out, pause)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePause(ctx context.Context, pause persistence.Pause) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pauses[pause.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.pauses[pause.ID] = pause
	return nil
}

func (m *memStore) DeletePause(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pauses[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.pauses, id)
	return nil
}

func (m *memStore) ReplacePauses(ctx context.Context, deleteIDs []string, replacement persistence.Pause) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range deleteIDs {
		delete(m.pauses, id)
	}
	m.pauses[replacement.ID] = replacement
	m.pauseOrder = append(m.pauseOrder, replacement.ID)
	return nil
}

// --- persistence.TagRepository ---

func (m *memStore) CreateTag(ctx context.Context, tag persistence.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[tag.ID] = tag
	return nil
}

func (m *memStore) GetTag(ctx context.Context, id string) (persistence.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tag, ok := m.tags[id]
	if !ok {
		return persistence.Tag{}, persistence.ErrNotFound
	}
	return tag, nil
}

func (m *memStore) ListTagsByOwner(ctx context.Context, ownerID string) ([]persistence.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Tag
	for _, tag := range m.tags {
		if tag.CreatedBy == ownerID {
			out = append(out, tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateTag(ctx context.Context, tag persistence.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[tag.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.tags[tag.ID] = tag
	return nil
}

func (m *memStore) DeleteTag(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.tags, id)
	return nil
}

// --- persistence.ShareRepository ---

func (m *memStore) CreateShare(ctx context.Context, share persistence.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.shares {
		if existing.CalendarID == share.CalendarID && existing.GranteeID == share.GranteeID {
			return persistence.ErrDuplicate
		}
	}
	m.shares[share.ID] = share
	return nil
}

func (m *memStore) GetShare(ctx context.Context, id string) (persistence.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[id]
	if !ok {
		return persistence.Share{}, persistence.ErrNotFound
	}
	return share, nil
}

func (m *memStore) GetShareByCalendarAndGrantee(ctx context.Context, calendarID, granteeID string) (persistence.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, share := range m.shares {
		if share.CalendarID == calendarID && share.GranteeID == granteeID {
			return share, nil
		}
	}
	return persistence.Share{}, persistence.ErrNotFound
}

func (m *memStore) ListSharesByCalendar(ctx context.Context, calendarID string) ([]persistence.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Share
	for _, share := range m.shares {
		if share.CalendarID == calendarID {
			out = append(out, share)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListSharesByGrantee(ctx context.Context, granteeID string) ([]persistence.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Share
	for _, share := range m.shares {
		if share.GranteeID == granteeID {
			out = append(out, share)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteShare(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shares[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.shares, id)
	return nil
}
