package model_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/model"
	. "github.com/acai-travel/events-calendar/internal/cal/testing"
	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func names(events []*model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func day(d int, hour int) time.Time {
	return time.Date(2024, 2, d, hour, 0, 0, 0, time.UTC)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, WithFixture)
}

func TestMongoRepository(t *testing.T) {
	testStore(t, WithMongoFixture)
}

func testStore(t *testing.T, with func(func(*testing.T, *Fixture)) func(*testing.T)) {
	ctx := context.Background()

	t.Run("describe event", with(func(t *testing.T, f *Fixture) {
		e := f.CreateEvent("Concert", day(10, 20), EndingAt(day(10, 23)), InCategory("Music"))

		got, err := f.Store.DescribeEvent(ctx, e.ID.Hex())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Name != "Concert" || got.Category != "Music" || got.EndDate == nil || !got.EndDate.Equal(day(10, 23)) {
			t.Errorf("unexpected event: %+v", got)
		}
	}))

	t.Run("describe missing event", with(func(t *testing.T, f *Fixture) {
		for _, id := range []string{primitive.NewObjectID().Hex(), "not-an-id"} {
			if _, err := f.Store.DescribeEvent(ctx, id); !errors.Is(err, model.ErrNotFound) {
				t.Errorf("DescribeEvent(%q): expected ErrNotFound, got %v", id, err)
			}
		}
	}))

	t.Run("overlapping a month", with(func(t *testing.T, f *Fixture) {
		f.CreateEvent("January", time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC))
		f.CreateEvent("Spans into February", time.Date(2024, 1, 30, 10, 0, 0, 0, time.UTC), EndingAt(day(2, 10)))
		f.CreateEvent("Open", day(5, 9))
		f.CreateEvent("Last day", day(29, 22))
		f.CreateEvent("March", time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))

		got, err := f.Store.ListEventsOverlapping(ctx, day(1, 0), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"Spans into February", "Open", "Last day"}
		if diff := cmp.Diff(want, names(got)); diff != "" {
			t.Errorf("ListEventsOverlapping mismatch (-want +got):\n%s", diff)
		}
	}))

	t.Run("starting in range", with(func(t *testing.T, f *Fixture) {
		f.CreateEvent("Before", day(1, 10))
		f.CreateEvent("Inside", day(12, 10))
		f.CreateEvent("Later", day(20, 10))

		got, err := f.Store.ListEventsStarting(ctx, day(10, 0), day(15, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Inside"}, names(got)); diff != "" {
			t.Errorf("bounded range mismatch (-want +got):\n%s", diff)
		}

		got, err = f.Store.ListEventsStarting(ctx, day(10, 0), time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Inside", "Later"}, names(got)); diff != "" {
			t.Errorf("open range mismatch (-want +got):\n%s", diff)
		}
	}))

	t.Run("future events", with(func(t *testing.T, f *Fixture) {
		f.CreateEvent("Ended", day(10, 9), EndingAt(day(12, 9)))
		f.CreateEvent("Running", day(13, 9), EndingAt(day(15, 9)))
		f.CreateEvent("Started", day(14, 9))
		f.CreateEvent("Upcoming", day(20, 9))
		f.CreateEvent("Far", day(28, 9))

		all, err := f.Store.ListFutureEvents(ctx, f.Now, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Running", "Upcoming", "Far"}, names(all)); diff != "" {
			t.Errorf("unlimited mismatch (-want +got):\n%s", diff)
		}

		two, err := f.Store.ListFutureEvents(ctx, f.Now, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Running", "Upcoming"}, names(two)); diff != "" {
			t.Errorf("limited mismatch (-want +got):\n%s", diff)
		}
	}))

	t.Run("events by category and location", with(func(t *testing.T, f *Fixture) {
		f.CreateEvent("Gig", day(3, 20), InCategory("Music"), AtLocation("Hall"))
		f.CreateEvent("Talk", day(4, 18), InCategory("Science"), AtLocation("Hall"))
		f.CreateEvent("Jam", day(5, 20), InCategory("Music"))

		byCategory, err := f.Store.ListEventsBy(ctx, model.FilterCategory, "Music")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Gig", "Jam"}, names(byCategory)); diff != "" {
			t.Errorf("category mismatch (-want +got):\n%s", diff)
		}

		byLocation, err := f.Store.ListEventsBy(ctx, model.FilterLocation, "Hall")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"Gig", "Talk"}, names(byLocation)); diff != "" {
			t.Errorf("location mismatch (-want +got):\n%s", diff)
		}

		unknown, err := f.Store.ListEventsBy(ctx, model.FilterUnknown, "Music")
		if err != nil || len(unknown) != 0 {
			t.Errorf("expected empty result for unknown kind, got %v, %v", names(unknown), err)
		}
	}))

	t.Run("categories and locations", with(func(t *testing.T, f *Fixture) {
		f.CreateCategory("Music", "Concerts and gigs")
		f.CreateLocation("Hall", "The main hall")

		c, err := f.Store.DescribeCategory(ctx, "Music")
		if err != nil || c.Description != "Concerts and gigs" {
			t.Errorf("unexpected category %+v, %v", c, err)
		}
		l, err := f.Store.DescribeLocation(ctx, "Hall")
		if err != nil || l.Description != "The main hall" {
			t.Errorf("unexpected location %+v, %v", l, err)
		}

		if _, err := f.Store.DescribeCategory(ctx, "Nope"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing category, got %v", err)
		}
		if _, err := f.Store.DescribeLocation(ctx, "Nope"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing location, got %v", err)
		}
		if err := f.Store.CreateCategory(ctx, &model.Category{Name: "Music"}); err == nil {
			t.Error("expected duplicate category to be rejected")
		}
	}))

	t.Run("event years", with(func(t *testing.T, f *Fixture) {
		f.CreateEvent("A", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
		f.CreateEvent("B", time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC))
		f.CreateEvent("C", time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC))

		years, err := f.Store.EventYears(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]int{2023, 2025}, years); diff != "" {
			t.Errorf("years mismatch (-want +got):\n%s", diff)
		}
	}))

	t.Run("save and delete", with(func(t *testing.T, f *Fixture) {
		e := &model.Event{Name: "Draft", StartDate: day(8, 10)}

		saved, err := model.SaveEvent(ctx, f.Store, e, "alice", true)
		if err != nil {
			t.Fatalf("unexpected error creating: %v", err)
		}
		if saved.CreatedBy != "alice" || saved.ID.IsZero() {
			t.Errorf("expected creator and ID to be set, got %+v", saved)
		}

		saved.Name = "Final"
		updated, err := model.SaveEvent(ctx, f.Store, saved, "bob", false)
		if err != nil {
			t.Fatalf("unexpected error updating: %v", err)
		}
		if updated.Name != "Final" || updated.CreatedBy != "alice" {
			t.Errorf("expected name updated and creator kept, got %+v", updated)
		}

		if err := f.Store.DeleteEvent(ctx, saved.ID.Hex()); err != nil {
			t.Fatalf("unexpected error deleting: %v", err)
		}
		if err := f.Store.DeleteEvent(ctx, saved.ID.Hex()); err != nil {
			t.Errorf("deleting twice should be a no-op, got %v", err)
		}
		if _, err := f.Store.DescribeEvent(ctx, saved.ID.Hex()); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected deleted event to be gone, got %v", err)
		}
	}))

	t.Run("update missing event", with(func(t *testing.T, f *Fixture) {
		err := f.Store.UpdateEvent(ctx, &model.Event{ID: primitive.NewObjectID(), Name: "Ghost"})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	}))
}

func TestParseFilterKind(t *testing.T) {
	tests := map[string]model.FilterKind{
		"Category": model.FilterCategory,
		"category": model.FilterCategory,
		"Location": model.FilterLocation,
		"venue":    model.FilterUnknown,
		"":         model.FilterUnknown,
	}
	for in, want := range tests {
		if got := model.ParseFilterKind(in); got != want {
			t.Errorf("ParseFilterKind(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestEvent_IsFuture(t *testing.T) {
	now := day(14, 12)
	end := day(14, 12)

	tests := []struct {
		name string
		e    model.Event
		want bool
	}{
		{"open, starts later", model.Event{StartDate: day(15, 9)}, true},
		{"open, started", model.Event{StartDate: day(14, 9)}, false},
		{"ends exactly now", model.Event{StartDate: day(13, 9), EndDate: &end}, true},
		{"ended", model.Event{StartDate: day(10, 9), EndDate: func() *time.Time { t := day(11, 9); return &t }()}, false},
	}
	for _, tt := range tests {
		if got := tt.e.IsFuture(now); got != tt.want {
			t.Errorf("%s: IsFuture = %v, want %v", tt.name, got, tt.want)
		}
	}
}
