package model

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store. It backs local development runs and tests
// and mirrors the ordering and filtering of Repository.
type Memory struct {
	mu         sync.RWMutex
	events     []*Event
	categories map[string]*Category
	locations  map[string]*Location
}

func NewMemory() *Memory {
	return &Memory{
		categories: make(map[string]*Category),
		locations:  make(map[string]*Location),
	}
}

func (m *Memory) DescribeEvent(_ context.Context, id string) (*Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.events {
		if e.ID == oid {
			return clone(e), nil
		}
	}
	return nil, fmt.Errorf("event %q: %w", id, ErrNotFound)
}

func (m *Memory) ListEventsOverlapping(_ context.Context, from, to time.Time) ([]*Event, error) {
	return m.filter(func(e *Event) bool {
		if e.StartDate.After(to) {
			return false
		}
		if e.EndDate == nil {
			return !e.StartDate.Before(from)
		}
		return !e.EndDate.Before(from)
	}, 0), nil
}

func (m *Memory) ListEventsStarting(_ context.Context, from, to time.Time) ([]*Event, error) {
	return m.filter(func(e *Event) bool {
		if e.StartDate.Before(from) {
			return false
		}
		return to.IsZero() || e.StartDate.Before(to)
	}, 0), nil
}

func (m *Memory) ListFutureEvents(_ context.Context, now time.Time, limit int) ([]*Event, error) {
	return m.filter(func(e *Event) bool { return e.IsFuture(now) }, limit), nil
}

func (m *Memory) ListEventsBy(_ context.Context, kind FilterKind, name string) ([]*Event, error) {
	switch kind {
	case FilterCategory:
		return m.filter(func(e *Event) bool { return e.Category == name }, 0), nil
	case FilterLocation:
		return m.filter(func(e *Event) bool { return e.Location == name }, 0), nil
	default:
		return []*Event{}, nil
	}
}

func (m *Memory) EventYears(_ context.Context) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	years := make([]int, 0)
	for _, e := range m.events {
		y := e.StartDate.UTC().Year()
		if !slices.Contains(years, y) {
			years = append(years, y)
		}
	}
	slices.Sort(years)
	return years, nil
}

func (m *Memory) DescribeCategory(_ context.Context, name string) (*Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.categories[name]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) DescribeLocation(_ context.Context, name string) (*Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.locations[name]
	if !ok {
		return nil, fmt.Errorf("location %q: %w", name, ErrNotFound)
	}
	cp := *l
	return &cp, nil
}

func (m *Memory) CreateCategory(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[c.Name]; ok {
		return fmt.Errorf("category %q already exists", c.Name)
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	cp := *c
	m.categories[c.Name] = &cp
	return nil
}

func (m *Memory) CreateLocation(_ context.Context, l *Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.locations[l.Name]; ok {
		return fmt.Errorf("location %q already exists", l.Name)
	}
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	cp := *l
	m.locations[l.Name] = &cp
	return nil
}

func (m *Memory) CreateEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	m.events = append(m.events, clone(e))
	return nil
}

func (m *Memory) UpdateEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.events {
		if existing.ID == e.ID {
			m.events[i] = clone(e)
			return nil
		}
	}
	return fmt.Errorf("event %q: %w", e.ID.Hex(), ErrNotFound)
}

func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("event %q: %w", id, ErrNotFound)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = slices.DeleteFunc(m.events, func(e *Event) bool { return e.ID == oid })
	return nil
}

func (m *Memory) filter(keep func(*Event) bool, limit int) []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Event, 0)
	for _, e := range m.events {
		if keep(e) {
			out = append(out, clone(e))
		}
	}

	slices.SortStableFunc(out, func(a, b *Event) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return a.ID.Timestamp().Compare(b.ID.Timestamp())
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func clone(e *Event) *Event {
	cp := *e
	if e.EndDate != nil {
		end := *e.EndDate
		cp.EndDate = &end
	}
	return &cp
}
