// Package testing provides fixtures shared by the calendar package tests.
package testing

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/acai-travel/events-calendar/internal/cal/auth"
	"github.com/acai-travel/events-calendar/internal/cal/model"
	"github.com/acai-travel/events-calendar/internal/mongox"
	"go.mongodb.org/mongo-driver/mongo"
)

const JWTSecret = "fixture-secret"

// Now is the fixed clock fixtures are built around: Wednesday 14 February 2024, noon UTC.
var Now = time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)

type Fixture struct {
	T     *testing.T
	Store model.Store
	Auth  *auth.Authenticator
	Now   time.Time
}

// WithFixture runs test against a fresh in-memory store.
func WithFixture(test func(t *testing.T, f *Fixture)) func(t *testing.T) {
	return func(t *testing.T) {
		test(t, newFixture(t, model.NewMemory()))
	}
}

// WithMongoFixture runs test against a throwaway MongoDB database. It is
// skipped unless MONGO_URI is set.
func WithMongoFixture(test func(t *testing.T, f *Fixture)) func(t *testing.T) {
	return func(t *testing.T) {
		test(t, newFixture(t, model.New(ConnectMongo(t))))
	}
}

func newFixture(t *testing.T, store model.Store) *Fixture {
	return &Fixture{
		T:     t,
		Store: store,
		Auth:  auth.New(JWTSecret, ""),
		Now:   Now,
	}
}

// ConnectMongo connects to MONGO_URI and returns a database that is dropped
// when the test ends.
func ConnectMongo(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("Skipping test: MONGO_URI not set")
	}

	name := fmt.Sprintf("calendar_test_%d", time.Now().UnixNano())
	db, err := mongox.Connect(context.Background(), uri, name)
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	if err := mongox.EnsureIndexes(context.Background(), db); err != nil {
		t.Fatalf("failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.Drop(ctx)
		_ = db.Client().Disconnect(ctx)
	})

	return db
}

// EventOption customizes an event created by CreateEvent.
type EventOption func(*model.Event)

func EndingAt(end time.Time) EventOption {
	return func(e *model.Event) { e.EndDate = &end }
}

func InCategory(name string) EventOption {
	return func(e *model.Event) { e.Category = name }
}

func AtLocation(name string) EventOption {
	return func(e *model.Event) { e.Location = name }
}

func (f *Fixture) CreateEvent(name string, start time.Time, opts ...EventOption) *model.Event {
	f.T.Helper()

	e := &model.Event{
		Name:      name,
		StartDate: start,
		WikiPage:  name,
		CreatedBy: "fixture",
		CreatedAt: f.Now,
		UpdatedAt: f.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := f.Store.CreateEvent(context.Background(), e); err != nil {
		f.T.Fatalf("failed to create event: %v", err)
	}
	return e
}

func (f *Fixture) CreateCategory(name, description string) *model.Category {
	f.T.Helper()

	c := &model.Category{Name: name, Description: description}
	if err := f.Store.CreateCategory(context.Background(), c); err != nil {
		f.T.Fatalf("failed to create category: %v", err)
	}
	return c
}

func (f *Fixture) CreateLocation(name, description string) *model.Location {
	f.T.Helper()

	l := &model.Location{Name: name, Description: description}
	if err := f.Store.CreateLocation(context.Background(), l); err != nil {
		f.T.Fatalf("failed to create location: %v", err)
	}
	return l
}

// Token issues a session token for actor.
func (f *Fixture) Token(actor string) string {
	f.T.Helper()

	token, err := f.Auth.Issue(actor, time.Hour)
	if err != nil {
		f.T.Fatalf("failed to issue token: %v", err)
	}
	return token
}
