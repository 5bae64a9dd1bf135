package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires the handlers and middleware into the API router.
// Authenticate guards every route except registration and login; Middleware
// wraps the whole router, outermost first.
type RouterConfig struct {
	Auth         *AuthHandler
	Calendars    *CalendarHandler
	Tags         *TagHandler
	Appointments *AppointmentHandler
	Pauses       *PauseHandler
	Shares       *ShareHandler
	ICS          *ICSHandler
	Authenticate func(http.Handler) http.Handler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	protected := http.NewServeMux()

	if cfg.Auth != nil {
		protected.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Logout(w, r)
		})
		protected.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Auth.Me(w, r)
		})
	}

	if cfg.Calendars != nil {
		protected.HandleFunc("/api/calendar", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Calendars.List(w, r)
			case http.MethodPost:
				cfg.Calendars.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/api/calendar/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/calendar/", w)
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Calendars.Get(w, r)
			case http.MethodPut:
				cfg.Calendars.Update(w, r)
			case http.MethodDelete:
				cfg.Calendars.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Tags != nil {
		protected.HandleFunc("/api/tag", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Tags.List(w, r)
			case http.MethodPost:
				cfg.Tags.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/api/tag/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/tag/", w)
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodPut:
				cfg.Tags.Update(w, r)
			case http.MethodDelete:
				cfg.Tags.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Appointments != nil {
		protected.HandleFunc("/api/appointment", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Appointments.Create(w, r)
		})
		protected.HandleFunc("/api/appointment/calendar/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/appointment/calendar/", w)
			if !ok {
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Appointments.ListByCalendar(w, r)
		})
		protected.HandleFunc("/api/appointment/recurrent/", func(w http.ResponseWriter, r *http.Request) {
			if trimmed, found := strings.CutSuffix(r.URL.Path, "/occurrences"); found {
				r.URL.Path = trimmed
				r, ok := withPathID(r, "/api/appointment/recurrent/", w)
				if !ok {
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Appointments.Occurrences(w, r)
				return
			}
			r, ok := withPathID(r, "/api/appointment/recurrent/", w)
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodPut:
				cfg.Appointments.UpdateRecurrent(w, r)
			case http.MethodDelete:
				cfg.Appointments.DeleteRecurrent(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
		protected.HandleFunc("/api/appointment/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/appointment/", w)
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Appointments.Get(w, r)
			case http.MethodPut:
				cfg.Appointments.Update(w, r)
			case http.MethodDelete:
				cfg.Appointments.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Pauses != nil {
		protected.HandleFunc("/api/pause", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Pauses.Create(w, r)
		})
		protected.HandleFunc("/api/pause/recurrent/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/pause/recurrent/", w)
			if !ok {
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Pauses.ListByRecurrent(w, r)
		})
		protected.HandleFunc("/api/pause/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/pause/", w)
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodPut:
				cfg.Pauses.Update(w, r)
			case http.MethodDelete:
				cfg.Pauses.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Shares != nil {
		protected.HandleFunc("/api/share", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Shares.Create(w, r)
		})
		protected.HandleFunc("/api/share/remove", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Shares.Remove(w, r)
		})
		protected.HandleFunc("/api/share/calendars", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Shares.ListSharedCalendars(w, r)
		})
		protected.HandleFunc("/api/share/accept/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/share/accept/", w)
			if !ok {
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Shares.Accept(w, r)
		})
		protected.HandleFunc("/api/share/calendar/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/share/calendar/", w)
			if !ok {
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Shares.ListByCalendar(w, r)
		})
		protected.HandleFunc("/api/share/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/share/", w)
			if !ok {
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Shares.Delete(w, r)
		})
	}

	if cfg.ICS != nil {
		protected.HandleFunc("/api/ics/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withPathID(r, "/api/ics/", w)
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.ICS.Export(w, r)
			case http.MethodPost:
				cfg.ICS.Import(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	var guarded http.Handler = protected
	if cfg.Authenticate != nil {
		guarded = cfg.Authenticate(protected)
	}

	mux := http.NewServeMux()
	mux.Handle("/", guarded)

	if cfg.Auth != nil {
		mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Register(w, r)
		})
		mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

// withPathID strips prefix from the request path and attaches the remainder
// to the context as the resource identifier. Empty or nested remainders are
// rejected with a 404.
func withPathID(r *http.Request, prefix string, w http.ResponseWriter) (*http.Request, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return r, false
	}
	return r.WithContext(ContextWithResourceID(r.Context(), id)), true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
