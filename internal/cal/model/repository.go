package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EventsCollection     = "events"
	CategoriesCollection = "categories"
	LocationsCollection  = "locations"
)

// Repository is the MongoDB-backed Store.
type Repository struct {
	events     *mongo.Collection
	categories *mongo.Collection
	locations  *mongo.Collection
}

func New(db *mongo.Database) *Repository {
	return &Repository{
		events:     db.Collection(EventsCollection),
		categories: db.Collection(CategoriesCollection),
		locations:  db.Collection(LocationsCollection),
	}
}

var byStartAsc = options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}, {Key: "_id", Value: 1}})

func (r *Repository) DescribeEvent(ctx context.Context, id string) (*Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}

	var e Event
	if err := r.events.FindOne(ctx, bson.M{"_id": oid}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("event %q: %w", id, ErrNotFound)
		}
		return nil, err
	}

	return &e, nil
}

func (r *Repository) ListEventsOverlapping(ctx context.Context, from, to time.Time) ([]*Event, error) {
	filter := bson.M{
		"startDate": bson.M{"$lte": to},
		"$or": bson.A{
			bson.M{"endDate": nil, "startDate": bson.M{"$gte": from}},
			bson.M{"endDate": bson.M{"$gte": from}},
		},
	}
	return r.find(ctx, filter, byStartAsc)
}

func (r *Repository) ListEventsStarting(ctx context.Context, from, to time.Time) ([]*Event, error) {
	rng := bson.M{"$gte": from}
	if !to.IsZero() {
		rng["$lt"] = to
	}
	return r.find(ctx, bson.M{"startDate": rng}, byStartAsc)
}

func (r *Repository) ListFutureEvents(ctx context.Context, now time.Time, limit int) ([]*Event, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"endDate": bson.M{"$gte": now}},
			bson.M{"endDate": nil, "startDate": bson.M{"$gte": now}},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	return r.find(ctx, filter, opts)
}

func (r *Repository) ListEventsBy(ctx context.Context, kind FilterKind, name string) ([]*Event, error) {
	var filter bson.M
	switch kind {
	case FilterCategory:
		filter = bson.M{"category": name}
	case FilterLocation:
		filter = bson.M{"location": name}
	default:
		return []*Event{}, nil
	}
	return r.find(ctx, filter, byStartAsc)
}

func (r *Repository) EventYears(ctx context.Context) ([]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: bson.D{{Key: "$year", Value: "$startDate"}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.events.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate event years: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Year int `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	years := make([]int, 0, len(rows))
	for _, row := range rows {
		years = append(years, row.Year)
	}
	return years, nil
}

func (r *Repository) DescribeCategory(ctx context.Context, name string) (*Category, error) {
	var c Category
	if err := r.categories.FindOne(ctx, bson.M{"name": name}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) DescribeLocation(ctx context.Context, name string) (*Location, error) {
	var l Location
	if err := r.locations.FindOne(ctx, bson.M{"name": name}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("location %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := r.categories.InsertOne(ctx, c)
	return err
}

func (r *Repository) CreateLocation(ctx context.Context, l *Location) error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	_, err := r.locations.InsertOne(ctx, l)
	return err
}

func (r *Repository) CreateEvent(ctx context.Context, e *Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if _, err := r.events.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *Repository) UpdateEvent(ctx context.Context, e *Event) error {
	res, err := r.events.ReplaceOne(ctx, bson.M{"_id": e.ID}, e)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("event %q: %w", e.ID.Hex(), ErrNotFound)
	}
	return nil
}

// DeleteEvent removes the event. Deleting an event that is already gone is
// not an error.
func (r *Repository) DeleteEvent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	if _, err := r.events.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (r *Repository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*Event, error) {
	cur, err := r.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cur.Close(ctx)

	events := make([]*Event, 0)
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}
