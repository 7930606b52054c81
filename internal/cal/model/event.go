package model

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by stores when an event, category or location
// does not exist.
var ErrNotFound = errors.New("not found")

// Event is a single calendar entry.
type Event struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	StartDate time.Time          `bson:"startDate"`
	// EndDate is nil for open-ended events, which are pinned to their start day.
	EndDate  *time.Time `bson:"endDate"`
	WikiPage string     `bson:"wikiPage"`

	// Category and Location hold the names of the associated entities.
	// They are denormalized so listings never need a second lookup.
	Category string `bson:"category,omitempty"`
	Location string `bson:"location,omitempty"`

	CreatedBy string    `bson:"createdBy"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// URL is the path of the event's info/edit fragment.
func (e *Event) URL() string {
	return "/event/" + e.ID.Hex() + "/"
}

// WikiURL is the path of the event's detail page.
func (e *Event) WikiURL() string {
	return "/wiki/" + e.WikiPage
}

// IsFuture reports whether the event has not yet ended at now. Open-ended
// events are future while they have not started.
func (e *Event) IsFuture(now time.Time) bool {
	if e.EndDate == nil {
		return !e.StartDate.Before(now)
	}
	return !e.EndDate.Before(now)
}

// Category groups events.
type Category struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
}

// Location is where events take place.
type Location struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
}

// FilterKind selects which association a special listing filters on.
type FilterKind int

const (
	FilterUnknown FilterKind = iota
	FilterCategory
	FilterLocation
)

func (k FilterKind) String() string {
	switch k {
	case FilterCategory:
		return "Category"
	case FilterLocation:
		return "Location"
	default:
		return "Unknown"
	}
}

// ParseFilterKind maps a route segment to a FilterKind. Anything that is not
// a category or location is FilterUnknown.
func ParseFilterKind(s string) FilterKind {
	switch strings.ToLower(s) {
	case "category":
		return FilterCategory
	case "location":
		return FilterLocation
	default:
		return FilterUnknown
	}
}
