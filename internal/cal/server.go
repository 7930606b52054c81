// Package cal serves the events calendar: month views, filtered listings,
// feeds, iCalendar exports and event editing.
package cal

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/auth"
	"github.com/acai-travel/events-calendar/internal/cal/feed"
	"github.com/acai-travel/events-calendar/internal/cal/grid"
	"github.com/acai-travel/events-calendar/internal/cal/model"
	"github.com/acai-travel/events-calendar/internal/httpx"
	"github.com/gorilla/mux"
	"github.com/twitchtv/twirp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options tunes how the server renders and exports events.
type Options struct {
	Location     *time.Location
	FirstWeekday time.Weekday

	// BaseURL is prepended to links in iCalendar exports.
	BaseURL string

	// BackfillDays is how far back the index "latest events" list reaches.
	BackfillDays int

	Now func() time.Time
}

type Server struct {
	store    model.Store
	auth     *auth.Authenticator
	grid     *grid.Renderer
	exporter *feed.Exporter
	tmpl     *template.Template

	loc      *time.Location
	backfill int
	now      func() time.Time

	exports metric.Int64Counter
}

func NewServer(store model.Store, authn *auth.Authenticator, opts Options) (*Server, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		store:    store,
		auth:     authn,
		loc:      opts.Location,
		backfill: opts.BackfillDays,
		now:      opts.Now,
	}

	s.grid = grid.New(opts.FirstWeekday, opts.Location)
	s.grid.Now = opts.Now
	s.exporter = &feed.Exporter{BaseURL: opts.BaseURL, Now: opts.Now}

	tmpl, err := template.New("cal").Funcs(template.FuncMap{
		"local": func(t time.Time) time.Time { return t.In(s.loc) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.tmpl = tmpl

	s.exports, err = otel.Meter(httpx.ServiceName).Int64Counter(
		"calendar.ical.exports",
		metric.WithDescription("Number of iCalendar documents exported"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export counter: %w", err)
	}

	return s, nil
}

// Register mounts the calendar routes on r. Callers are resolved for every
// route; mutating routes additionally require an authenticated caller.
func (s *Server) Register(r *mux.Router) {
	r.Use(s.auth.Middleware)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/calendar/{year:[0-9]{4}}/{month:[0-9]{1,2}}/", s.handleMonthly).Methods(http.MethodGet)
	r.HandleFunc("/calendar/by/{kind}/{name}/", s.handleSpecial).Methods(http.MethodGet)

	r.HandleFunc("/events/", s.handleEventList).Methods(http.MethodGet)
	r.HandleFunc("/events/{count}/", s.handleEventList).Methods(http.MethodGet)

	r.HandleFunc("/ical/", s.handleCompleteICal).Methods(http.MethodGet)
	r.HandleFunc("/ical/{count}/", s.handleCompleteICal).Methods(http.MethodGet)
	r.HandleFunc("/event/{id}/ical", s.handleEventICal).Methods(http.MethodGet)

	r.HandleFunc("/event/new/", s.requireAuth(s.handleEventForm)).Methods(http.MethodGet)
	r.HandleFunc("/event/new/", s.requireAuth(s.handleEventSave)).Methods(http.MethodPost)
	r.HandleFunc("/event/{id}/delete", s.requireAuth(s.handleEventDelete)).Methods(http.MethodPost)
	r.HandleFunc("/event/{id}/", s.requireAuth(s.handleEventForm)).Methods(http.MethodGet)
	r.HandleFunc("/event/{id}/", s.requireAuth(s.handleEventSave)).Methods(http.MethodPost)
}

// requireAuth rejects anonymous callers before the handler touches the store.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Authenticated() {
			writeError(w, r, twirp.NewError(twirp.Unauthenticated, "authentication required"))
			return
		}
		next(w, r)
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Failed to render template", "template", name, "error", err)
	}
}

// writeError maps err onto the twirp error vocabulary and writes it as a
// JSON error response with the matching HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var te twirp.Error
	switch {
	case errors.As(err, &te):
	case errors.Is(err, model.ErrNotFound):
		te = twirp.NotFoundError(err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		te = twirp.InternalErrorWith(err)
	}

	if werr := twirp.WriteError(w, te); werr != nil {
		slog.ErrorContext(r.Context(), "Failed to write error response", "error", werr)
	}
}
