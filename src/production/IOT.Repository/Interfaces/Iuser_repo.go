package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

// UserListQuery represents parameters for the admin user listing. Filter
// is matched case-insensitively against name, email and phone.
type UserListQuery struct {
	Filter    string
	SortField string
	SortOrder string
	PageNum   int64
	PageRow   int64
}

// UserListResult represents a paginated user listing.
type UserListResult struct {
	Total int64            `json:"total"`
	Data  []iotmodels.User `json:"data"`
}

type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*iotmodels.User, error)
	List(ctx context.Context, query UserListQuery) (*UserListResult, error)
}
