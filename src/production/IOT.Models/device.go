package iotmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Device represents a registered field device owned by a user.
// MacAddress is unique across the fleet, compared case-insensitively.
type Device struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name       string             `bson:"name" json:"name"`
	Type       string             `bson:"type" json:"type"` // dht11, camera, led
	MacAddress string             `bson:"macAddress" json:"macAddress"`
	Status     bool               `bson:"status" json:"status"`
	CreatedBy  primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
