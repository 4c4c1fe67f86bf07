package iotmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Filter modes accepted by the telemetry aggregation query.
const (
	QueryByInit   = "byInit"
	QueryByUser   = "byUser"
	QueryByType   = "byType"
	QueryByDevice = "byDevice"
	QueryByTime   = "byTime"
)

// Sortable record fields.
const (
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
)

// SortAscending selects ascending order; any other value sorts descending.
const SortAscending = "ascending"

// TelemetryQuery is the aggregation request as submitted by clients.
type TelemetryQuery struct {
	SortOrder string         `json:"sortOrder"`
	SortField string         `json:"sortField" binding:"required"`
	PageNum   int64          `json:"pagenum" binding:"required"`
	PageRow   int64          `json:"pagerow" binding:"required"`
	Type      string         `json:"type" binding:"required"`
	Condition QueryCondition `json:"condition"`
}

// QueryCondition carries the mode-specific filter parameters. Time holds
// an inclusive [start, end] pair for byTime queries.
type QueryCondition struct {
	UserID   string   `json:"userID,omitempty"`
	Type     string   `json:"type,omitempty"`
	DeviceID string   `json:"deviceID,omitempty"`
	Time     []string `json:"time,omitempty"`
}

// TelemetryEntry is a single record as carried inside an aggregated row.
type TelemetryEntry struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Data      interface{}        `bson:"data" json:"data"`
	Flag      bool               `bson:"flag" json:"flag"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AggregatedRow is one flattened (device, record) pair: the device's
// metadata, its owner's public identity, and exactly one record.
type AggregatedRow struct {
	DeviceID   primitive.ObjectID `bson:"_id" json:"deviceID"`
	MacAddress string             `bson:"macAddress" json:"macAddress"`
	DeviceType string             `bson:"devicetype" json:"devicetype"`
	DeviceName string             `bson:"devicename" json:"devicename"`
	UserID     primitive.ObjectID `bson:"userID" json:"userID"`
	UserName   string             `bson:"username" json:"username"`
	Data       TelemetryEntry     `bson:"data" json:"data"`
}

// AggregatedResult is the paginated aggregation response. Total counts the
// entire filtered population, not just the returned page.
type AggregatedResult struct {
	Total int64           `json:"total"`
	Data  []AggregatedRow `json:"data"`
}

// MacQuery is the per-address listing request.
type MacQuery struct {
	MacAddress string `json:"macAddress" binding:"required"`
	PageNum    int64  `json:"pagenum" binding:"required"`
	PageRow    int64  `json:"pagerow" binding:"required"`
}

// MacResult is the per-address listing response.
type MacResult struct {
	Total int64             `json:"total"`
	Data  []TelemetryRecord `json:"data"`
}
