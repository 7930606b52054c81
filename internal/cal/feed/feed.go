// Package feed selects upcoming events for listings and exports them as
// iCalendar documents.
package feed

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/model"
	"github.com/twitchtv/twirp"
)

// Source yields future events ascending by start date.
type Source interface {
	ListFutureEvents(ctx context.Context, now time.Time, limit int) ([]*model.Event, error)
}

// ParseCount parses the optional numeric limit of a feed route. An empty
// value means no limit.
func ParseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, twirp.InvalidArgumentError("count", "must be a non-negative integer")
	}
	return n, nil
}

// SelectUpcoming returns the events a feed shows. With count 0 every future
// event is returned, most recent first. Otherwise the first count future
// events are returned in chronological order.
func SelectUpcoming(ctx context.Context, src Source, now time.Time, count int) ([]*model.Event, error) {
	if count < 0 {
		return nil, twirp.InvalidArgumentError("count", "must be a non-negative integer")
	}

	events, err := src.ListFutureEvents(ctx, now, count)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		slices.Reverse(events)
	}
	return events, nil
}
