package implementation

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

// NormalizeSort maps the requested field/direction to a sort document over
// the exploded rows. Ties are broken on the record id in the same
// direction so repeated identical queries page consistently.
func NormalizeSort(field, order string) (bson.D, error) {
	sortOrder := -1
	if order == iotmodels.SortAscending {
		sortOrder = 1
	}

	switch field {
	case iotmodels.SortByCreatedAt:
		return bson.D{{Key: "data.createdAt", Value: sortOrder}, {Key: "data._id", Value: sortOrder}}, nil
	case iotmodels.SortByUpdatedAt:
		return bson.D{{Key: "data.updatedAt", Value: sortOrder}, {Key: "data._id", Value: sortOrder}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort field %q", iotmodels.ErrValidation, field)
	}
}

// NormalizePage converts a 1-based page descriptor into skip/limit.
// A page number of 0 or less clamps skip to 0.
func NormalizePage(pageNum, pageRow int64) (skip, limit int64, err error) {
	if pageRow < 1 {
		return 0, 0, fmt.Errorf("%w: pagerow must be positive", iotmodels.ErrValidation)
	}
	skip = (pageNum - 1) * pageRow
	if skip < 0 {
		skip = 0
	}
	return skip, pageRow, nil
}

// telemetryFilter splits a filter mode into its two halves: conditions on
// the projected group (device/owner identity) and conditions on the
// individual record once the group is exploded.
type telemetryFilter struct {
	group  bson.A // $and clauses matched before the explode
	record bson.D // clauses appended to the flag=false record match
}

func buildFilter(q iotmodels.TelemetryQuery) (*telemetryFilter, error) {
	f := &telemetryFilter{}

	switch q.Type {
	case iotmodels.QueryByInit:
		return f, nil

	case iotmodels.QueryByUser, iotmodels.QueryByType, iotmodels.QueryByDevice, iotmodels.QueryByTime:
		userID, err := ParseObjectID(q.Condition.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: userID", iotmodels.ErrValidation)
		}
		f.group = append(f.group, bson.D{{Key: "userID", Value: userID}})

	default:
		return nil, fmt.Errorf("%w: unknown query type %q", iotmodels.ErrValidation, q.Type)
	}

	if q.Type == iotmodels.QueryByType || q.Type == iotmodels.QueryByDevice || q.Type == iotmodels.QueryByTime {
		if q.Condition.Type == "" {
			return nil, fmt.Errorf("%w: device type is required", iotmodels.ErrValidation)
		}
		f.group = append(f.group, bson.D{{Key: "devicetype", Value: q.Condition.Type}})
	}

	if q.Type == iotmodels.QueryByDevice || q.Type == iotmodels.QueryByTime {
		deviceID, err := ParseObjectID(q.Condition.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("%w: deviceID", iotmodels.ErrValidation)
		}
		f.group = append(f.group, bson.D{{Key: "_id", Value: deviceID}})
	}

	if q.Type == iotmodels.QueryByTime {
		if len(q.Condition.Time) != 2 {
			return nil, fmt.Errorf("%w: time must be a [start, end] pair", iotmodels.ErrValidation)
		}
		start, err := parseQueryTime(q.Condition.Time[0])
		if err != nil {
			return nil, err
		}
		end, err := parseQueryTime(q.Condition.Time[1])
		if err != nil {
			return nil, err
		}
		// Inclusive bounds, applied per record after the explode so only
		// in-range records survive into the page.
		f.record = append(f.record, bson.E{
			Key:   "data.createdAt",
			Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}},
		})
	}

	return f, nil
}

var queryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseQueryTime(value string) (time.Time, error) {
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable time %q", iotmodels.ErrValidation, value)
}

// BuildTelemetryPipeline assembles the aggregation pipeline:
//
//	group records by owning device, join device and owner metadata,
//	project the public fields, match the group-level filter, explode the
//	record sequence, then facet into total count and sorted page.
//
// Grouping before filtering resolves device/owner metadata once per
// device; the explode restores per-record granularity for the time
// filter, sort and pagination.
func BuildTelemetryPipeline(q iotmodels.TelemetryQuery) (mongo.Pipeline, error) {
	sort, err := NormalizeSort(q.SortField, q.SortOrder)
	if err != nil {
		return nil, err
	}
	skip, limit, err := NormalizePage(q.PageNum, q.PageRow)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$createdBy"},
			{Key: "macAddress", Value: bson.D{{Key: "$first", Value: "$macAddress"}}},
			{Key: "data", Value: bson.D{{Key: "$push", Value: bson.D{
				{Key: "_id", Value: "$_id"},
				{Key: "data", Value: "$data"},
				{Key: "flag", Value: "$flag"},
				{Key: "createdAt", Value: "$createdAt"},
				{Key: "updatedAt", Value: "$updatedAt"},
			}}}},
		}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "devices"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "createdBy"},
		}}},
		bson.D{{Key: "$unwind", Value: "$createdBy"}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "createdBy.createdBy"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "createdBy.createdBy"},
		}}},
		bson.D{{Key: "$unwind", Value: "$createdBy.createdBy"}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "macAddress", Value: 1},
			{Key: "devicetype", Value: "$createdBy.type"},
			{Key: "devicename", Value: "$createdBy.name"},
			{Key: "userID", Value: "$createdBy.createdBy._id"},
			{Key: "username", Value: "$createdBy.createdBy.name"},
			{Key: "data", Value: 1},
		}}},
	}

	if len(filter.group) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
			{Key: "$and", Value: filter.group},
		}}})
	}

	pipeline = append(pipeline, bson.D{{Key: "$unwind", Value: "$data"}})

	recordMatch := bson.D{{Key: "data.flag", Value: false}}
	recordMatch = append(recordMatch, filter.record...)

	pipeline = append(pipeline,
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "total", Value: bson.A{
				bson.D{{Key: "$match", Value: recordMatch}},
				bson.D{{Key: "$count", Value: "value"}},
			}},
			{Key: "data", Value: bson.A{
				bson.D{{Key: "$match", Value: recordMatch}},
				bson.D{{Key: "$sort", Value: sort}},
				bson.D{{Key: "$skip", Value: skip}},
				bson.D{{Key: "$limit", Value: limit}},
			}},
		}}},
		bson.D{{Key: "$unwind", Value: "$total"}},
	)

	return pipeline, nil
}
