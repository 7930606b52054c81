package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/acai-travel/events-calendar/internal/cal/model"
	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// ContentType is the media type of exported documents.
const ContentType = "text/calendar; charset=utf-8"

const productID = "-//acai-travel//events-calendar//EN"

// uidNamespace scopes the name-based UUIDs derived from event IDs, so an
// event keeps its UID across exports.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/acai-travel/events-calendar"))

// Exporter builds iCalendar documents from events.
type Exporter struct {
	// BaseURL is prepended to wiki paths in URL properties, e.g.
	// "https://example.org". Empty keeps paths relative.
	BaseURL string

	Now func() time.Time
}

// ToICalendar exports events without absolute URLs.
func ToICalendar(events []*model.Event) []byte {
	return (&Exporter{}).ToICalendar(events)
}

// ToICalendar serializes one VCALENDAR holding a VEVENT per event, in input order.
func (x *Exporter) ToICalendar(events []*model.Event) []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ics.MethodPublish)

	for _, e := range events {
		x.addEvent(cal, e)
	}

	return []byte(cal.Serialize())
}

func (x *Exporter) addEvent(cal *ics.Calendar, e *model.Event) {
	ev := cal.AddEvent(UID(e))

	stamp := e.UpdatedAt
	if stamp.IsZero() {
		stamp = x.now()
	}
	ev.SetDtStampTime(stamp)
	if !e.CreatedAt.IsZero() {
		ev.SetCreatedTime(e.CreatedAt)
	}

	ev.SetSummary(e.Name)
	ev.SetStartAt(e.StartDate)
	if e.EndDate != nil {
		ev.SetEndAt(*e.EndDate)
	}
	if e.Location != "" {
		ev.SetLocation(e.Location)
	}
	if e.Category != "" {
		ev.AddProperty(ics.ComponentPropertyCategories, e.Category)
	}
	if e.WikiPage != "" {
		ev.SetURL(strings.TrimSuffix(x.BaseURL, "/") + e.WikiURL())
	}
	if e.CreatedBy != "" {
		ev.AddProperty(ics.ComponentProperty("CONTACT"), e.CreatedBy)
	}
}

func (x *Exporter) now() time.Time {
	if x.Now == nil {
		return time.Now()
	}
	return x.Now()
}

// UID is the stable iCalendar identifier of an event.
func UID(e *model.Event) string {
	return uuid.NewSHA1(uidNamespace, []byte(e.ID.Hex())).String()
}

// Filename is the download name of a single-event export:
// "<YYYY-MM-DD> - <name>.ics", reduced to printable ASCII. The date is the
// start day in loc, UTC when loc is nil.
func Filename(e *model.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	name := e.StartDate.In(loc).Format(time.DateOnly) + " - " + e.Name + ".ics"
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || r == '"' || r == '\\' {
			return -1
		}
		return r
	}, name)
}

// ContentDisposition is the header value for a single-event download.
func ContentDisposition(e *model.Event, loc *time.Location) string {
	return fmt.Sprintf(`attachment; filename="%s"`, Filename(e, loc))
}

// ParseICalendar reads the VEVENTs of an iCalendar document back into
// events. Events without a start are skipped.
func ParseICalendar(r io.Reader) ([]*model.Event, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}
	return fromVEvents(cal.Events()), nil
}

// LoadCalendar fetches and parses an iCalendar feed from a URL.
func LoadCalendar(ctx context.Context, link string) ([]*model.Event, error) {
	slog.InfoContext(ctx, "Loading calendar", "link", link)

	cal, err := ics.ParseCalendarFromUrl(link, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	return fromVEvents(cal.Events()), nil
}

func fromVEvents(vevents []*ics.VEvent) []*model.Event {
	events := make([]*model.Event, 0, len(vevents))
	for _, ve := range vevents {
		start, err := ve.GetStartAt()
		if err != nil {
			slog.Warn("Skipping event without start", "uid", ve.Id(), "error", err)
			continue
		}

		e := &model.Event{
			Name:      value(ve, ics.ComponentPropertySummary),
			StartDate: start,
			Location:  value(ve, ics.ComponentPropertyLocation),
			Category:  value(ve, ics.ComponentPropertyCategories),
			CreatedBy: value(ve, ics.ComponentProperty("CONTACT")),
		}

		if ve.GetProperty(ics.ComponentPropertyDtEnd) != nil {
			if end, err := ve.GetEndAt(); err == nil {
				e.EndDate = &end
			}
		}

		if u := value(ve, ics.ComponentPropertyUrl); u != "" {
			if i := strings.Index(u, "/wiki/"); i >= 0 {
				e.WikiPage = u[i+len("/wiki/"):]
			}
		}

		events = append(events, e)
	}
	return events
}

func value(ve *ics.VEvent, prop ics.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}
