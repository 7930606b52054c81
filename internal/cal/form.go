package cal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/acai-travel/events-calendar/internal/cal/model"
)

const maxNameLength = 200

// Accepted layouts for start and end dates, tried in order.
var dateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
	time.DateOnly,
}

const formDateLayout = "2006-01-02 15:04"

// EventForm is the editable representation of an event. Errors maps form
// field names to messages after Validate.
type EventForm struct {
	Name      string
	StartDate string
	EndDate   string
	WikiPage  string
	Category  string
	Location  string

	Errors map[string]string

	start time.Time
	end   *time.Time
}

func formFromRequest(r *http.Request) EventForm {
	field := func(name string) string { return strings.TrimSpace(r.PostFormValue(name)) }
	return EventForm{
		Name:      field("name"),
		StartDate: field("start_date"),
		EndDate:   field("end_date"),
		WikiPage:  field("wiki_page"),
		Category:  field("category"),
		Location:  field("location"),
	}
}

func formFromEvent(e *model.Event, loc *time.Location) EventForm {
	f := EventForm{
		Name:      e.Name,
		StartDate: e.StartDate.In(loc).Format(formDateLayout),
		WikiPage:  e.WikiPage,
		Category:  e.Category,
		Location:  e.Location,
	}
	if e.EndDate != nil {
		f.EndDate = e.EndDate.In(loc).Format(formDateLayout)
	}
	return f
}

// Validate checks the form and records field errors. Category and location
// must name existing entities. The returned error is only set when the
// store could not be queried.
func (f *EventForm) Validate(ctx context.Context, s model.Store, loc *time.Location) (bool, error) {
	f.Errors = make(map[string]string)

	switch {
	case f.Name == "":
		f.Errors["name"] = "This field is required."
	case utf8.RuneCountInString(f.Name) > maxNameLength:
		f.Errors["name"] = "Ensure this value has at most 200 characters."
	}

	if f.StartDate == "" {
		f.Errors["start_date"] = "This field is required."
	} else if t, ok := parseDate(f.StartDate, loc); ok {
		f.start = t
	} else {
		f.Errors["start_date"] = "Enter a valid date/time."
	}

	f.end = nil
	if f.EndDate != "" {
		if t, ok := parseDate(f.EndDate, loc); !ok {
			f.Errors["end_date"] = "Enter a valid date/time."
		} else if !f.start.IsZero() && t.Before(f.start) {
			f.Errors["end_date"] = "The end must not be before the start."
		} else {
			f.end = &t
		}
	}

	if strings.ContainsAny(f.WikiPage, " \t\"'<>") {
		f.Errors["wiki_page"] = "Enter a valid page name."
	}

	if f.Category != "" {
		if _, err := s.DescribeCategory(ctx, f.Category); errors.Is(err, model.ErrNotFound) {
			f.Errors["category"] = "Select a valid category."
		} else if err != nil {
			return false, err
		}
	}
	if f.Location != "" {
		if _, err := s.DescribeLocation(ctx, f.Location); errors.Is(err, model.ErrNotFound) {
			f.Errors["location"] = "Select a valid location."
		} else if err != nil {
			return false, err
		}
	}

	return len(f.Errors) == 0, nil
}

// apply copies validated values onto e.
func (f *EventForm) apply(e *model.Event) {
	e.Name = f.Name
	e.StartDate = f.start.UTC()
	e.EndDate = nil
	if f.end != nil {
		end := f.end.UTC()
		e.EndDate = &end
	}
	e.WikiPage = f.WikiPage
	e.Category = f.Category
	e.Location = f.Location
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
