package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

// DeviceListQuery represents parameters for per-user device listings.
// Filter is matched case-insensitively against the device address.
type DeviceListQuery struct {
	UserID    primitive.ObjectID
	Filter    string
	SortField string
	SortOrder string
	PageNum   int64
	PageRow   int64
}

// DeviceListResult represents a paginated device listing.
type DeviceListResult struct {
	Total int64              `json:"total"`
	Data  []iotmodels.Device `json:"data"`
}

type DeviceRepository interface {
	// Lookup paths used by ingestion and aggregation. Address matching is
	// case-insensitive.
	FindByMac(ctx context.Context, macAddress string) (*iotmodels.Device, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*iotmodels.Device, error)

	// Create registers a device; duplicate addresses are rejected.
	Create(ctx context.Context, device *iotmodels.Device) error

	// Update mutates a device owned by ownerID; address renames are
	// checked for uniqueness against all other devices.
	Update(ctx context.Context, ownerID primitive.ObjectID, device iotmodels.Device) (*iotmodels.Device, error)

	// Delete removes a device owned by ownerID.
	Delete(ctx context.Context, ownerID, id primitive.ObjectID) (*iotmodels.Device, error)

	// ListByUser pages through a user's devices.
	ListByUser(ctx context.Context, query DeviceListQuery) (*DeviceListResult, error)

	// EnsureIndexes creates the unique, case-insensitive address index.
	EnsureIndexes(ctx context.Context) error
}
