package model

import (
	"context"
	"time"
)

// Store is the query surface the calendar views need from persistence.
// Listings are ordered ascending by start date unless stated otherwise.
type Store interface {
	DescribeEvent(ctx context.Context, id string) (*Event, error)

	// ListEventsOverlapping returns every event that occurs on at least one
	// day in [from, to]: start <= to and either the end is at or after from,
	// or the event is open-ended and starts at or after from.
	ListEventsOverlapping(ctx context.Context, from, to time.Time) ([]*Event, error)

	// ListEventsStarting returns events with from <= start < to. A zero to
	// leaves the range open.
	ListEventsStarting(ctx context.Context, from, to time.Time) ([]*Event, error)

	// ListFutureEvents returns events that have not ended at now. A limit of
	// zero returns all of them.
	ListFutureEvents(ctx context.Context, now time.Time, limit int) ([]*Event, error)

	// ListEventsBy returns the events associated with the named category or
	// location. FilterUnknown yields an empty result.
	ListEventsBy(ctx context.Context, kind FilterKind, name string) ([]*Event, error)

	// EventYears returns the distinct years in which events start, ascending.
	EventYears(ctx context.Context) ([]int, error)

	DescribeCategory(ctx context.Context, name string) (*Category, error)
	DescribeLocation(ctx context.Context, name string) (*Location, error)
	CreateCategory(ctx context.Context, c *Category) error
	CreateLocation(ctx context.Context, l *Location) error

	CreateEvent(ctx context.Context, e *Event) error
	UpdateEvent(ctx context.Context, e *Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// SaveEvent persists e on behalf of actor. New events get their creator and
// creation time stamped; existing ones only have UpdatedAt refreshed.
func SaveEvent(ctx context.Context, s Store, e *Event, actor string, isNew bool) (*Event, error) {
	now := time.Now().UTC()
	e.UpdatedAt = now

	if isNew {
		e.CreatedBy = actor
		e.CreatedAt = now
		if err := s.CreateEvent(ctx, e); err != nil {
			return nil, err
		}
	} else if err := s.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}

	return s.DescribeEvent(ctx, e.ID.Hex())
}
