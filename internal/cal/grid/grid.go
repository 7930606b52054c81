// Package grid renders the month calendar table shown on the calendar pages.
package grid

import (
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/model"
	"github.com/twitchtv/twirp"
)

var (
	weekdayClasses = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}
	weekdayNames   = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// Renderer lays out a month as 7-column week rows.
type Renderer struct {
	FirstWeekday time.Weekday
	Location     *time.Location

	// Now is the clock used to highlight today. Defaults to time.Now.
	Now func() time.Time
}

func New(firstWeekday time.Weekday, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{
		FirstWeekday: firstWeekday,
		Location:     loc,
		Now:          time.Now,
	}
}

// ValidateMonth returns an OutOfRange error for dates the calendar cannot show.
func ValidateMonth(year, month int) error {
	if year < 1 || year > 9999 {
		return twirp.NewError(twirp.OutOfRange, fmt.Sprintf("year %d is out of range", year)).WithMeta("argument", "year")
	}
	if month < 1 || month > 12 {
		return twirp.NewError(twirp.OutOfRange, fmt.Sprintf("month %d is out of range", month)).WithMeta("argument", "month")
	}
	return nil
}

// MonthRange returns local midnight of the first day of the month and the
// start of the day after its last day: the window a store query must cover
// so every event visible in the month is fetched.
func MonthRange(year, month int, loc *time.Location) (from, to time.Time, err error) {
	if err := ValidateMonth(year, month); err != nil {
		return time.Time{}, time.Time{}, err
	}
	from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	to = from.AddDate(0, 1, 0)
	return from, to, nil
}

// Adjacent returns the first days of the months before and after year/month.
func Adjacent(year, month int) (prev, next time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0), first.AddDate(0, 1, 0)
}

// OccursOn reports whether e is shown on the calendar day starting at day.
// An event shows when it starts no later than the next midnight and either
// ends at or after day, or has no end and starts at or after day.
func OccursOn(e *model.Event, day time.Time) bool {
	next := day.AddDate(0, 0, 1)
	if e.StartDate.After(next) {
		return false
	}
	if e.EndDate == nil {
		return !e.StartDate.Before(day)
	}
	return !e.EndDate.Before(day)
}

// Bucket assigns events to the days of the month starting at first. The
// result is indexed by day-1; within a day events keep their input order.
func Bucket(first time.Time, events []*model.Event) [][]*model.Event {
	days := daysIn(first)
	buckets := make([][]*model.Event, days)

	for _, e := range events {
		if e == nil {
			continue
		}
		for i := 0; i < days; i++ {
			if OccursOn(e, first.AddDate(0, 0, i)) {
				buckets[i] = append(buckets[i], e)
			}
		}
	}

	return buckets
}

// RenderCurrentMonth renders the month containing today.
func (r *Renderer) RenderCurrentMonth(events []*model.Event, privileged bool) (template.HTML, error) {
	today := r.now().In(r.loc())
	return r.RenderMonth(today.Year(), int(today.Month()), events, privileged)
}

// RenderMonth renders year/month with the navigation header. events should
// cover MonthRange; privileged adds an edit link to every entry.
func (r *Renderer) RenderMonth(year, month int, events []*model.Event, privileged bool) (template.HTML, error) {
	if err := ValidateMonth(year, month); err != nil {
		return "", err
	}

	loc := r.loc()
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	buckets := Bucket(first, events)
	prev, next := Adjacent(year, month)

	today := r.now().In(loc)
	isToday := func(day int) bool {
		return today.Year() == year && int(today.Month()) == month && today.Day() == day
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<a href="/calendar/%04d/%02d/">&lt;</a> <a href="/calendar/%04d/%02d/">&gt;</a>`,
		prev.Year(), int(prev.Month()), next.Year(), int(next.Month()))

	b.WriteString(`<table border="0" cellpadding="0" cellspacing="0" class="month">` + "\n")
	fmt.Fprintf(&b, `<tr><th colspan="7" class="month">%s</th></tr>`+"\n", first.Month())

	b.WriteString("<tr>")
	for i := 0; i < 7; i++ {
		wd := (int(r.FirstWeekday) + i) % 7
		fmt.Fprintf(&b, `<th class="%s">%s</th>`, weekdayClasses[wd], weekdayNames[wd])
	}
	b.WriteString("</tr>\n")

	lead := (int(first.Weekday()) - int(r.FirstWeekday) + 7) % 7
	total := lead + len(buckets)
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}

	for cell := 0; cell < total; cell++ {
		if cell%7 == 0 {
			b.WriteString("<tr>")
		}

		day := cell - lead + 1
		if day < 1 || day > len(buckets) {
			b.WriteString(`<td class="noday">&nbsp;</td>`)
		} else {
			class := weekdayClasses[(int(r.FirstWeekday)+cell)%7]
			if isToday(day) {
				class += " today filled"
			}
			r.writeDay(&b, class, day, buckets[day-1], privileged)
		}

		if cell%7 == 6 {
			b.WriteString("</tr>\n")
		}
	}

	b.WriteString("</table>\n")

	return template.HTML(b.String()), nil
}

func (r *Renderer) writeDay(b *strings.Builder, class string, day int, events []*model.Event, privileged bool) {
	fmt.Fprintf(b, `<td class="%s">%d <ul>`, class, day)
	for _, e := range events {
		b.WriteString("<li>")
		fmt.Fprintf(b, `<a href="%s">%s %s</a>`,
			html.EscapeString(e.WikiURL()),
			e.StartDate.In(r.loc()).Format("15:04"),
			html.EscapeString(e.Name))
		if privileged {
			fmt.Fprintf(b, `<a href="%s" class="edit">/e</a>`, html.EscapeString(e.URL()))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul></td>")
}

func (r *Renderer) loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}
