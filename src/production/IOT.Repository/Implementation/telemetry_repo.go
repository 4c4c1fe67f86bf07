package implementation

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

type MongoTelemetryRepository struct {
	coll         *mongo.Collection
	queryTimeout time.Duration
}

func NewMongoTelemetryRepository(db *mongo.Database, queryTimeout time.Duration) *MongoTelemetryRepository {
	return &MongoTelemetryRepository{coll: db.Collection("data"), queryTimeout: queryTimeout}
}

func (r *MongoTelemetryRepository) Insert(ctx context.Context, record iotmodels.TelemetryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("insert telemetry: %w", err)
	}
	return nil
}

// facetResult mirrors the single document produced by the $facet/$unwind
// tail of the aggregation pipeline.
type facetResult struct {
	Total struct {
		Value int64 `bson:"value"`
	} `bson:"total"`
	Data []iotmodels.AggregatedRow `bson:"data"`
}

func (r *MongoTelemetryRepository) Aggregate(ctx context.Context, query iotmodels.TelemetryQuery) (*iotmodels.AggregatedResult, error) {
	pipeline, err := BuildTelemetryPipeline(query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate telemetry: %w", err)
	}
	defer cursor.Close(ctx)

	var results []facetResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode aggregation: %w", err)
	}

	// The $unwind on $total drops the document entirely when nothing
	// matched, so an empty cursor means an empty result, not an error.
	if len(results) == 0 {
		return &iotmodels.AggregatedResult{Total: 0, Data: []iotmodels.AggregatedRow{}}, nil
	}

	res := &iotmodels.AggregatedResult{
		Total: results[0].Total.Value,
		Data:  results[0].Data,
	}
	if res.Data == nil {
		res.Data = []iotmodels.AggregatedRow{}
	}
	return res, nil
}

func (r *MongoTelemetryRepository) FindByMac(ctx context.Context, query iotmodels.MacQuery) (*iotmodels.MacResult, error) {
	skip, limit, err := NormalizePage(query.PageNum, query.PageRow)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	filter := bson.D{{Key: "macAddress", Value: query.MacAddress}}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count telemetry: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find telemetry: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]iotmodels.TelemetryRecord, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}

	return &iotmodels.MacResult{Total: total, Data: records}, nil
}

func (r *MongoTelemetryRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "flag", Value: true},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}

	result, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("soft delete telemetry: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: telemetry record %s", iotmodels.ErrNotFound, id.Hex())
	}
	return nil
}
