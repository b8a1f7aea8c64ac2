package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/config"
	"github.com/mamadbah2/salmon-fce/internal/domain/models"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("record not found")
	// ErrIndexConflict means a non-unique (date, site) index blocks the
	// unique one.
	ErrIndexConflict = errors.New("conflicting (date, site) index")
)

// RangeQuery selects records for a site with date in [Start, End].
// A zero Limit returns every match.
type RangeQuery struct {
	Site  string
	Start string
	End   string
	Limit int64
}

// SummaryStats is the raw output of the summary aggregate.
type SummaryStats struct {
	Count  int64
	AvgFCR float64
	AvgFCE float64
}

// UpsertResult counts the effect of one bulk upsert.
type UpsertResult struct {
	Matched  int64
	Modified int64
	Upserted int64
}

// MongoDBRepository stores daily records in a single collection keyed by
// (date, site).
type MongoDBRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, cfg config.MongoDBConfig, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(cfg.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:     client,
		collection: client.Database(cfg.DBName).Collection(cfg.Collection),
		logger:     logger,
	}, nil
}

// EnsureIndexes creates the unique (date, site) index. An index that
// already exists is not an error.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}, {Key: "site", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("date_1_site_1"),
	}
	_, err := r.collection.Indexes().CreateOne(ctx, model)
	switch {
	case err == nil:
		return nil
	case isIndexConflict(err):
		unique, lerr := r.hasUniqueDateSite(ctx)
		if lerr != nil {
			return fmt.Errorf("inspect indexes after conflict: %w", lerr)
		}
		if !unique {
			return fmt.Errorf("%w: existing (date, site) index is not unique: %w", ErrIndexConflict, err)
		}
		r.logger.Debug("unique (date, site) index present under other options", zap.Error(err))
		return nil
	case isIndexExists(err):
		r.logger.Debug("unique index already present", zap.Error(err))
		return nil
	default:
		return fmt.Errorf("create (date, site) index: %w", err)
	}
}

// hasUniqueDateSite reports whether a unique index on exactly {date: 1, site: 1}
// is installed.
func (r *MongoDBRepository) hasUniqueDateSite(ctx context.Context) (bool, error) {
	cursor, err := r.collection.Indexes().List(ctx)
	if err != nil {
		return false, err
	}

	var specs []indexSpec
	if err := cursor.All(ctx, &specs); err != nil {
		return false, err
	}
	for _, spec := range specs {
		if spec.isUniqueDateSite() {
			return true, nil
		}
	}
	return false, nil
}

type indexSpec struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

func (s indexSpec) isUniqueDateSite() bool {
	if !s.Unique || len(s.Key) != 2 {
		return false
	}
	return s.Key[0].Key == "date" && isAscending(s.Key[0].Value) &&
		s.Key[1].Key == "site" && isAscending(s.Key[1].Value)
}

func isAscending(v interface{}) bool {
	switch n := v.(type) {
	case int32:
		return n == 1
	case int64:
		return n == 1
	case float64:
		return n == 1
	default:
		return false
	}
}

// BulkUpsert replaces or inserts every record by (date, site) in one
// unordered bulk write.
func (r *MongoDBRepository) BulkUpsert(ctx context.Context, records []models.DailyRecord) (UpsertResult, error) {
	if len(records) == 0 {
		return UpsertResult{}, nil
	}

	writes := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "date", Value: rec.Date}, {Key: "site", Value: rec.Site}}).
			SetReplacement(rec).
			SetUpsert(true))
	}

	res, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("bulk upsert %d records: %w", len(records), err)
	}
	return UpsertResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}, nil
}

// FindRange returns matching records sorted ascending by date.
func (r *MongoDBRepository) FindRange(ctx context.Context, q RangeQuery) ([]models.DailyRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := r.collection.Find(ctx, rangeFilter(q.Site, q.Start, q.End), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s [%s, %s]: %w", q.Site, q.Start, q.End, err)
	}

	records := make([]models.DailyRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode range: %w", err)
	}
	return records, nil
}

// Latest returns the newest record for a site.
func (r *MongoDBRepository) Latest(ctx context.Context, site string) (models.DailyRecord, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	var rec models.DailyRecord
	err := r.collection.FindOne(ctx, bson.D{{Key: "site", Value: site}}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DailyRecord{}, ErrNotFound
	}
	if err != nil {
		return models.DailyRecord{}, fmt.Errorf("find latest for %s: %w", site, err)
	}
	return rec, nil
}

// Summary counts and averages fcr/fce over a range in a single aggregate
// pass. An empty range yields zero stats.
func (r *MongoDBRepository) Summary(ctx context.Context, site, start, end string) (SummaryStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: rangeFilter(site, start, end)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avg_fcr", Value: bson.D{{Key: "$avg", Value: "$fcr"}}},
			{Key: "avg_fce", Value: bson.D{{Key: "$avg", Value: "$fce"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return SummaryStats{}, fmt.Errorf("summary aggregate: %w", err)
	}

	var rows []struct {
		Count  int64    `bson:"count"`
		AvgFCR *float64 `bson:"avg_fcr"`
		AvgFCE *float64 `bson:"avg_fce"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return SummaryStats{}, fmt.Errorf("decode summary: %w", err)
	}
	if len(rows) == 0 {
		return SummaryStats{}, nil
	}

	stats := SummaryStats{Count: rows[0].Count}
	if rows[0].AvgFCR != nil {
		stats.AvgFCR = *rows[0].AvgFCR
	}
	if rows[0].AvgFCE != nil {
		stats.AvgFCE = *rows[0].AvgFCE
	}
	return stats, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func rangeFilter(site, start, end string) bson.D {
	return bson.D{
		{Key: "date", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}},
		{Key: "site", Value: site},
	}
}
