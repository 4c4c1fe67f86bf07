package iotmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TelemetryRecord is a single reading pushed by a device. Records are
// created by the ingestion consumer; Flag marks a logical delete, the
// document itself is never removed.
type TelemetryRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MacAddress string             `bson:"macAddress" json:"macAddress"`
	CreatedBy  primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Data       interface{}        `bson:"data" json:"data"`
	Flag       bool               `bson:"flag" json:"flag"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
