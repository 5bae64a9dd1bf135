// Package http provides HTTP handlers and middleware for the calendar API.
//
// All routes live under /api and exchange JSON. Except for registration and
// login every route requires a bearer token issued by POST /api/auth/login:
//   - POST /api/auth/register, POST /api/auth/login, POST /api/auth/logout,
//     GET /api/auth/me: account lifecycle and token handling, see
//     auth_handler.go.
//   - GET/POST /api/calendar, GET/PUT/DELETE /api/calendar/{id}: calendar
//     management exchanging the `calendarDTO` payload in calendar_handler.go.
//   - GET/POST /api/tag, PUT/DELETE /api/tag/{id}: tag management, see
//     tag_handler.go.
//   - POST /api/appointment, GET/PUT/DELETE /api/appointment/{id},
//     PUT/DELETE /api/appointment/recurrent/{id},
//     GET /api/appointment/recurrent/{id}/occurrences,
//     GET /api/appointment/calendar/{calendarID}: appointment management. A
//     create request carrying a recursion rule produces a recurrent
//     appointment, see appointment_handler.go.
//   - POST /api/pause, PUT/DELETE /api/pause/{id},
//     GET /api/pause/recurrent/{id}: pause intervals on recurrent
//     appointments, see pause_handler.go.
//   - POST /api/share, POST /api/share/accept/{calendarID},
//     POST /api/share/remove, DELETE /api/share/{id},
//     GET /api/share/calendar/{calendarID}, GET /api/share/calendars:
//     calendar sharing, see share_handler.go.
//   - GET/POST /api/ics/{calendarID}: iCalendar export and import, see
//     ics_handler.go.
//
// Service errors map onto status codes in responder.go: validation failures
// become 422 with a field error map, missing resources 404, ownership
// violations 403, uniqueness conflicts 409, credential and token failures
// 401. Request/response DTOs live alongside their handlers.
package http
