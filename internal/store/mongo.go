package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rickgao/spreadcache/internal/model"
)

// seriesDoc is the stored shape of one key.
type seriesDoc struct {
	ID        string     `bson:"_id"`
	Ticker    string     `bson:"ticker"`
	Field     string     `bson:"field"`
	Points    []pointDoc `bson:"points"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

type pointDoc struct {
	Date  time.Time `bson:"d"`
	Value *float64  `bson:"v,omitempty"` // nil = missing
}

// MongoStore keeps one document per key. ReplaceOne swaps the whole
// document atomically. It does not implement Locker, so writers are only
// serialized within one process.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore wraps a collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func docID(key model.Key) string {
	return escapedKey(key, "/")
}

// Load fetches the document for key.
func (s *MongoStore) Load(ctx context.Context, key model.Key) (model.Series, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}

	res := s.coll.FindOne(ctx, bson.M{"_id": docID(key)})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find series: %w", err)
	}

	var doc seriesDoc
	if err := res.Decode(&doc); err != nil {
		return nil, &CorruptionError{Key: key, Err: err}
	}

	series, err := doc.seriesFor(key)
	if err != nil {
		return nil, &CorruptionError{Key: key, Err: err}
	}
	return series, nil
}

// Save upserts the document for key.
func (s *MongoStore) Save(ctx context.Context, key model.Key, series model.Series) error {
	if err := checkSave(key, series); err != nil {
		return err
	}

	doc := newSeriesDoc(key, series, time.Now().UTC())
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace series: %w", err)
	}
	return nil
}

func newSeriesDoc(key model.Key, series model.Series, now time.Time) seriesDoc {
	doc := seriesDoc{
		ID:        docID(key),
		Ticker:    key.Ticker,
		Field:     key.Field,
		Points:    make([]pointDoc, len(series)),
		UpdatedAt: now,
	}
	for i, p := range series {
		doc.Points[i] = pointDoc{Date: p.Date, Value: p.Value.Ptr()}
	}
	return doc
}

// seriesFor decodes the document after checking it belongs to key.
func (d seriesDoc) seriesFor(key model.Key) (model.Series, error) {
	if d.Ticker != key.Ticker || d.Field != key.Field {
		return nil, fmt.Errorf("document holds %s/%s", d.Ticker, d.Field)
	}
	return d.series()
}

func (d seriesDoc) series() (model.Series, error) {
	series := make(model.Series, len(d.Points))
	for i, p := range d.Points {
		v := null.FloatFromPtr(p.Value)
		if v.Valid {
			v = model.FloatValue(v.Float64)
		}
		series[i] = model.Point{Date: model.Day(p.Date.UTC()), Value: v}
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}
