package feed

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/twitchtv/twirp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func seed(t *testing.T) *model.Memory {
	t.Helper()
	ctx := context.Background()
	store := model.NewMemory()

	events := []*model.Event{
		{Name: "Past", StartDate: now.AddDate(0, 0, -3), EndDate: ptr(now.AddDate(0, 0, -2))},
		{Name: "Running", StartDate: now.AddDate(0, 0, -1), EndDate: ptr(now.AddDate(0, 0, 1))},
		{Name: "Tomorrow", StartDate: now.AddDate(0, 0, 1)},
		{Name: "Next week", StartDate: now.AddDate(0, 0, 7), EndDate: ptr(now.AddDate(0, 0, 8))},
		{Name: "Started this morning", StartDate: now.Add(-2 * time.Hour)},
	}
	for _, e := range events {
		if err := store.CreateEvent(ctx, e); err != nil {
			t.Fatalf("failed to seed event: %v", err)
		}
	}
	return store
}

func names(events []*model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"5", 5, false},
		{" 12 ", 12, false},
		{"-1", 0, true},
		{"ten", 0, true},
		{"1.5", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseCount(tt.raw)
		if tt.wantErr {
			var te twirp.Error
			if !errors.As(err, &te) || te.Code() != twirp.InvalidArgument {
				t.Errorf("ParseCount(%q): expected InvalidArgument, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseCount(%q) = %d, %v; want %d", tt.raw, got, err, tt.want)
		}
	}
}

func TestSelectUpcoming(t *testing.T) {
	ctx := context.Background()
	store := seed(t)

	t.Run("all future events, most recent first", func(t *testing.T) {
		got, err := SelectUpcoming(ctx, store, now, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"Next week", "Tomorrow", "Running"}
		if diff := cmp.Diff(want, names(got)); diff != "" {
			t.Errorf("SelectUpcoming(0) mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("first N in chronological order", func(t *testing.T) {
		got, err := SelectUpcoming(ctx, store, now, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Running", "Tomorrow"}, names(got)); diff != "" {
			t.Errorf("SelectUpcoming(2) mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("N larger than available", func(t *testing.T) {
		got, err := SelectUpcoming(ctx, store, now, 50)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Running", "Tomorrow", "Next week"}, names(got)); diff != "" {
			t.Errorf("SelectUpcoming(50) mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := SelectUpcoming(ctx, store, now, -3)
		var te twirp.Error
		if !errors.As(err, &te) || te.Code() != twirp.InvalidArgument {
			t.Fatalf("expected InvalidArgument, got %v", err)
		}
	})
}

func TestToICalendar_RoundTrip(t *testing.T) {
	events := []*model.Event{
		{
			ID:        primitive.NewObjectID(),
			Name:      "Tom & Jerry <live>",
			StartDate: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
			EndDate:   ptr(time.Date(2024, 2, 1, 11, 30, 0, 0, time.UTC)),
			Location:  "Main Hall",
			Category:  "Concert",
			WikiPage:  "Tom_and_Jerry",
			CreatedBy: "alice",
		},
		{
			ID:        primitive.NewObjectID(),
			Name:      "Open evening",
			StartDate: time.Date(2024, 2, 3, 18, 0, 0, 0, time.UTC),
		},
	}

	x := &Exporter{
		BaseURL: "https://example.org/",
		Now:     func() time.Time { return now },
	}
	out := x.ToICalendar(events)

	if !bytes.Contains(out, []byte("SUMMARY:Tom & Jerry <live>")) {
		t.Errorf("expected the summary to appear unescaped, got:\n%s", out)
	}
	if got := bytes.Count(out, []byte("BEGIN:VEVENT")); got != len(events) {
		t.Errorf("expected %d VEVENT blocks, got %d", len(events), got)
	}
	if !bytes.Contains(out, []byte("URL:https://example.org/wiki/Tom_and_Jerry")) {
		t.Errorf("expected absolute wiki URL, got:\n%s", out)
	}

	parsed, err := ParseICalendar(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to parse exported calendar: %v", err)
	}

	want := []*model.Event{
		{
			Name:      events[0].Name,
			StartDate: events[0].StartDate,
			EndDate:   events[0].EndDate,
			Location:  "Main Hall",
			Category:  "Concert",
			WikiPage:  "Tom_and_Jerry",
			CreatedBy: "alice",
		},
		{
			Name:      events[1].Name,
			StartDate: events[1].StartDate,
		},
	}

	opts := cmpopts.IgnoreFields(model.Event{}, "ID", "CreatedAt", "UpdatedAt")
	if diff := cmp.Diff(want, parsed, opts); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToICalendar_Empty(t *testing.T) {
	out := string(ToICalendar(nil))
	if !strings.Contains(out, "BEGIN:VCALENDAR") || strings.Contains(out, "BEGIN:VEVENT") {
		t.Errorf("expected an empty calendar, got:\n%s", out)
	}
}

func TestUID_Stable(t *testing.T) {
	e := &model.Event{ID: primitive.NewObjectID()}
	if UID(e) != UID(&model.Event{ID: e.ID}) {
		t.Error("UID must be derived from the event ID only")
	}
	if UID(e) == UID(&model.Event{ID: primitive.NewObjectID()}) {
		t.Error("different events must have different UIDs")
	}
}

func TestFilename(t *testing.T) {
	e := &model.Event{
		Name:      `Café "Night" über`,
		StartDate: time.Date(2024, 3, 7, 20, 0, 0, 0, time.UTC),
	}

	if got, want := Filename(e, nil), "2024-03-07 - Caf Night ber.ics"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
	if got, want := ContentDisposition(e, time.UTC), `attachment; filename="2024-03-07 - Caf Night ber.ics"`; got != want {
		t.Errorf("ContentDisposition() = %q, want %q", got, want)
	}
}

func TestFilename_LocalDay(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	// 00:30 in Madrid is still the previous day in UTC.
	e := &model.Event{
		Name:      "Midnight run",
		StartDate: time.Date(2024, 3, 8, 0, 30, 0, 0, madrid).UTC(),
	}

	if got, want := Filename(e, madrid), "2024-03-08 - Midnight run.ics"; got != want {
		t.Errorf("Filename(madrid) = %q, want %q", got, want)
	}
	if got, want := Filename(e, time.UTC), "2024-03-07 - Midnight run.ics"; got != want {
		t.Errorf("Filename(UTC) = %q, want %q", got, want)
	}
}
