package cal

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/auth"
	"github.com/acai-travel/events-calendar/internal/cal/feed"
	"github.com/acai-travel/events-calendar/internal/cal/grid"
	"github.com/acai-travel/events-calendar/internal/cal/model"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// archivePage is the data of archive.html.
type archivePage struct {
	Calendar template.HTML
	Years    []int
	Latest   []*model.Event
	Editor   bool

	// Set on filtered listings.
	Title       string
	Type        string
	Description string
}

// eventInfo is the data of the eventinfo fragment.
type eventInfo struct {
	Form     EventForm
	Event    *model.Event
	New      bool
	HasError bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := auth.FromContext(ctx)
	today := s.now().In(s.loc)

	from, to, err := grid.MonthRange(today.Year(), int(today.Month()), s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := s.store.ListEventsOverlapping(ctx, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rendered, err := s.grid.RenderCurrentMonth(events, caller.Authenticated())
	if err != nil {
		writeError(w, r, err)
		return
	}

	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)
	latest, err := s.store.ListEventsStarting(ctx, midnight.AddDate(0, 0, -s.backfill), time.Time{})
	if err != nil {
		writeError(w, r, err)
		return
	}

	years, err := s.store.EventYears(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "archive.html", archivePage{
		Calendar: rendered,
		Years:    years,
		Latest:   latest,
		Editor:   caller.Authenticated(),
	})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := auth.FromContext(ctx)
	vars := mux.Vars(r)

	// The route only admits digits.
	year, _ := strconv.Atoi(vars["year"])
	month, _ := strconv.Atoi(vars["month"])

	from, to, err := grid.MonthRange(year, month, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := s.store.ListEventsOverlapping(ctx, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rendered, err := s.grid.RenderMonth(year, month, events, caller.Authenticated())
	if err != nil {
		writeError(w, r, err)
		return
	}

	latest, err := s.store.ListEventsStarting(ctx, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	years, err := s.store.EventYears(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "archive.html", archivePage{
		Calendar: rendered,
		Years:    years,
		Latest:   latest,
		Editor:   caller.Authenticated(),
	})
}

// handleSpecial lists the events of a category or location. A missing
// category or location, or an unknown kind, renders an empty listing.
func (s *Server) handleSpecial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	kind := model.ParseFilterKind(vars["kind"])
	name := vars["name"]

	page := archivePage{
		Title:  name,
		Type:   kind.String(),
		Editor: auth.FromContext(ctx).Authenticated(),
	}

	description, err := s.describeFilter(r, kind, name)
	switch {
	case errors.Is(err, model.ErrNotFound):
		slog.InfoContext(ctx, "Filter target not found", "kind", kind, "name", name)
	case err != nil:
		writeError(w, r, err)
		return
	default:
		page.Description = description
		page.Latest, err = s.store.ListEventsBy(ctx, kind, name)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	s.render(w, r, http.StatusOK, "archive.html", page)
}

func (s *Server) describeFilter(r *http.Request, kind model.FilterKind, name string) (string, error) {
	switch kind {
	case model.FilterCategory:
		c, err := s.store.DescribeCategory(r.Context(), name)
		if err != nil {
			return "", err
		}
		return c.Description, nil
	case model.FilterLocation:
		l, err := s.store.DescribeLocation(r.Context(), name)
		if err != nil {
			return "", err
		}
		return l.Description, nil
	default:
		return "", nil
	}
}

func (s *Server) handleEventList(w http.ResponseWriter, r *http.Request) {
	count, err := feed.ParseCount(mux.Vars(r)["count"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := feed.SelectUpcoming(r.Context(), s.store, s.now(), count)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "events", events)
}

func (s *Server) handleEventICal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	e, err := s.store.DescribeEvent(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.exports.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", "single")))

	w.Header().Set("Content-Type", feed.ContentType)
	w.Header().Set("Content-Disposition", feed.ContentDisposition(e, s.loc))
	_, _ = w.Write(s.exporter.ToICalendar([]*model.Event{e}))
}

func (s *Server) handleCompleteICal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := feed.ParseCount(mux.Vars(r)["count"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := feed.SelectUpcoming(ctx, s.store, s.now(), count)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.exports.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", "aggregate")))

	w.Header().Set("Content-Type", feed.ContentType)
	_, _ = w.Write(s.exporter.ToICalendar(events))
}

func (s *Server) handleEventForm(w http.ResponseWriter, r *http.Request) {
	id, exists := mux.Vars(r)["id"]

	info := eventInfo{New: !exists, Event: &model.Event{}}
	if exists {
		e, err := s.store.DescribeEvent(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		info.Event = e
		info.Form = formFromEvent(e, s.loc)
	}

	s.render(w, r, http.StatusOK, "eventinfo", info)
}

// handleEventSave creates or updates an event. Invalid input re-renders the
// form with field errors and a 422 status.
func (s *Server) handleEventSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := auth.FromContext(ctx)
	id, exists := mux.Vars(r)["id"]

	event := &model.Event{ID: primitive.NewObjectID()}
	if exists {
		e, err := s.store.DescribeEvent(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		event = e
	}

	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "eventinfo", eventInfo{
			Event:    event,
			New:      !exists,
			HasError: true,
			Form:     EventForm{Errors: map[string]string{"form": "Malformed form data."}},
		})
		return
	}

	form := formFromRequest(r)
	ok, err := form.Validate(ctx, s.store, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		s.render(w, r, http.StatusUnprocessableEntity, "eventinfo", eventInfo{
			Form:     form,
			Event:    event,
			New:      !exists,
			HasError: true,
		})
		return
	}

	form.apply(event)
	saved, err := model.SaveEvent(ctx, s.store, event, caller.Actor, !exists)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(ctx, "Event saved", "event_id", saved.ID.Hex(), "actor", caller.Actor, "new", !exists)

	s.render(w, r, http.StatusOK, "eventinfo", eventInfo{
		Form:  formFromEvent(saved, s.loc),
		Event: saved,
	})
}

func (s *Server) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if _, err := s.store.DescribeEvent(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(ctx, "Event deleted", "event_id", id, "actor", auth.FromContext(ctx).Actor)
	w.WriteHeader(http.StatusNoContent)
}
