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

type MongoUserRepository struct {
	coll         *mongo.Collection
	queryTimeout time.Duration
}

func NewMongoUserRepository(db *mongo.Database, queryTimeout time.Duration) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection("users"), queryTimeout: queryTimeout}
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*iotmodels.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var user iotmodels.User
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", iotmodels.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) List(ctx context.Context, query interfaces.UserListQuery) (*interfaces.UserListResult, error) {
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
	case "role", "createdAt", "updatedAt", "status":
		sort = bson.D{{Key: query.SortField, Value: sortOrder}}
	default:
		sort = bson.D{{Key: "status", Value: -1}}
	}

	filter := bson.D{}
	if query.Filter != "" {
		reg := containsInsensitive(query.Filter)
		filter = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: reg}},
			bson.D{{Key: "email", Value: reg}},
			bson.D{{Key: "phone", Value: reg}},
		}}}
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().SetSort(sort).SetSkip(skip).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]iotmodels.User, 0, limit)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	return &interfaces.UserListResult{Total: total, Data: users}, nil
}
