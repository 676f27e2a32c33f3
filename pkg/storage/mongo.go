package storage

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/reposcout/pkg/search"
)

// DefaultMongoDatabase is used when Config.Database is empty.
const DefaultMongoDatabase = "reposcout"

const runsCollection = "runs"

// MongoStore stores each run as one document in the runs collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type runDocument struct {
	ID       string          `bson:"_id"`
	Query    string          `bson:"query"`
	Identity string          `bson:"identity"`
	Shape    string          `bson:"shape"`
	Fetched  int             `bson:"fetched"`
	Matched  int             `bson:"matched"`
	At       time.Time       `bson:"at"`
	Records  []search.Record `bson:"records,omitempty"`
}

func toDocument(run *Run) runDocument {
	return runDocument{
		ID:       run.ID.String(),
		Query:    run.Query,
		Identity: run.Identity,
		Shape:    run.Shape,
		Fetched:  run.Fetched,
		Matched:  run.Matched,
		At:       run.At.UTC(),
		Records:  run.Records,
	}
}

func (d runDocument) run() (Run, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Run{}, wrapf(err, "parse run id %q", d.ID)
	}
	return Run{
		ID:       id,
		Query:    d.Query,
		Identity: d.Identity,
		Shape:    d.Shape,
		Fetched:  d.Fetched,
		Matched:  d.Matched,
		At:       d.At.UTC(),
		Records:  d.Records,
	}, nil
}

// OpenMongo connects to cfg.DSN and pings the server.
func OpenMongo(ctx context.Context, cfg Config) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.DSN)
	if cfg.MaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxOpenConns))
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, wrapf(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, wrapf(err, "ping mongo")
	}
	db := cfg.Database
	if db == "" {
		db = DefaultMongoDatabase
	}
	s := NewMongoStore(client, db)
	if _, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "at", Value: -1}}}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, wrapf(err, "create index")
	}
	return s, nil
}

// NewMongoStore uses an existing client.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(runsCollection),
	}
}

// SaveRun replaces the document with the run's ID, inserting it if absent.
func (s *MongoStore) SaveRun(ctx context.Context, run *Run) error {
	doc := toDocument(run)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return wrapf(err, "save run %s", doc.ID)
	}
	return nil
}

// Run loads one run document.
func (s *MongoStore) Run(ctx context.Context, id uuid.UUID) (*Run, error) {
	var doc runDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, wrapf(err, "find run %s", id)
	}
	run, err := doc.run()
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Runs lists the most recent runs without their records.
func (s *MongoStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(int64(listLimit(limit))).
		SetProjection(bson.M{"records": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapf(err, "find runs")
	}
	var docs []runDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrapf(err, "decode runs")
	}
	runs := make([]Run, 0, len(docs))
	for _, d := range docs {
		run, err := d.run()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
