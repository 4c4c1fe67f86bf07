package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

type TelemetryRepository interface {
	// Insert persists a single record. Used by the ingestion consumer and
	// by the admin override path.
	Insert(ctx context.Context, record iotmodels.TelemetryRecord) error

	// Aggregate runs the grouped/joined/exploded telemetry query and
	// returns one page plus the total count of the filtered population.
	Aggregate(ctx context.Context, query iotmodels.TelemetryQuery) (*iotmodels.AggregatedResult, error)

	// FindByMac lists records for one device address, newest first.
	FindByMac(ctx context.Context, query iotmodels.MacQuery) (*iotmodels.MacResult, error)

	// SoftDelete marks a record deleted. The document is kept.
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}
