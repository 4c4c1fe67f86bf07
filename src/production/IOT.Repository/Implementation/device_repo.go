package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
	interfaces "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Interfaces"
)

type MongoDeviceRepository struct {
	coll         *mongo.Collection
	queryTimeout time.Duration
}

func NewMongoDeviceRepository(db *mongo.Database, queryTimeout time.Duration) *MongoDeviceRepository {
	return &MongoDeviceRepository{coll: db.Collection("devices"), queryTimeout: queryTimeout}
}

// EnsureIndexes creates the unique address index. Strength-2 collation
// makes the uniqueness constraint case-insensitive, so concurrent creates
// racing past the application-level check still cannot produce duplicates.
func (r *MongoDeviceRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "macAddress", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	})
	if err != nil {
		return fmt.Errorf("create device indexes: %w", err)
	}
	return nil
}

func (r *MongoDeviceRepository) FindByMac(ctx context.Context, macAddress string) (*iotmodels.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var device iotmodels.Device
	err := r.coll.FindOne(ctx, bson.D{{Key: "macAddress", Value: macExact(macAddress)}}).Decode(&device)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: device %s", iotmodels.ErrNotFound, macAddress)
		}
		return nil, fmt.Errorf("find device by address: %w", err)
	}
	return &device, nil
}

func (r *MongoDeviceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*iotmodels.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var device iotmodels.Device
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&device)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: device %s", iotmodels.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("find device: %w", err)
	}
	return &device, nil
}

func (r *MongoDeviceRepository) Create(ctx context.Context, device *iotmodels.Device) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	count, err := r.coll.CountDocuments(ctx, bson.D{{Key: "macAddress", Value: macExact(device.MacAddress)}})
	if err != nil {
		return fmt.Errorf("check device address: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: device %s", iotmodels.ErrConflict, device.MacAddress)
	}

	now := time.Now().UTC()
	device.CreatedAt = now
	device.UpdatedAt = now

	result, err := r.coll.InsertOne(ctx, device)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: device %s", iotmodels.ErrConflict, device.MacAddress)
		}
		return fmt.Errorf("create device: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		device.ID = id
	}
	return nil
}

func (r *MongoDeviceRepository) Update(ctx context.Context, ownerID primitive.ObjectID, device iotmodels.Device) (*iotmodels.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	// An address rename must not collide with any other device.
	count, err := r.coll.CountDocuments(ctx, bson.D{
		{Key: "_id", Value: bson.D{{Key: "$ne", Value: device.ID}}},
		{Key: "macAddress", Value: macExact(device.MacAddress)},
	})
	if err != nil {
		return nil, fmt.Errorf("check device address: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: device %s", iotmodels.ErrConflict, device.MacAddress)
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: device.Name},
		{Key: "type", Value: device.Type},
		{Key: "macAddress", Value: device.MacAddress},
		{Key: "status", Value: device.Status},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated iotmodels.Device
	err = r.coll.FindOneAndUpdate(ctx, bson.D{
		{Key: "_id", Value: device.ID},
		{Key: "createdBy", Value: ownerID},
	}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: device %s", iotmodels.ErrNotFound, device.ID.Hex())
		}
		return nil, fmt.Errorf("update device: %w", err)
	}
	return &updated, nil
}

func (r *MongoDeviceRepository) Delete(ctx context.Context, ownerID, id primitive.ObjectID) (*iotmodels.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var deleted iotmodels.Device
	err := r.coll.FindOneAndDelete(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "createdBy", Value: ownerID},
	}).Decode(&deleted)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: device %s", iotmodels.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("delete device: %w", err)
	}
	return &deleted, nil
}

func (r *MongoDeviceRepository) ListByUser(ctx context.Context, query interfaces.DeviceListQuery) (*interfaces.DeviceListResult, error) {
	skip, limit, err := NormalizePage(query.PageNum, query.PageRow)
	if err != nil {
		return nil, err
	}

	sortOrder := -1
	if query.SortOrder == iotmodels.SortAscending {
		sortOrder = 1
	}
	var sort bson.D
	switch query.SortField {
	case "createdAt", "updatedAt", "status":
		sort = bson.D{{Key: query.SortField, Value: sortOrder}}
	default:
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}

	filter := bson.D{{Key: "createdBy", Value: query.UserID}}
	if query.Filter != "" {
		filter = append(filter, bson.E{Key: "macAddress", Value: containsInsensitive(query.Filter)})
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}

	opts := options.Find().SetSort(sort).SetSkip(skip).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer cursor.Close(ctx)

	devices := make([]iotmodels.Device, 0, limit)
	if err := cursor.All(ctx, &devices); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}

	return &interfaces.DeviceListResult{Total: total, Data: devices}, nil
}
