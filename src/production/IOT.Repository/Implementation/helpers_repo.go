package implementation

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

// ParseObjectID converts a hex identifier from a request into an ObjectID.
func ParseObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", iotmodels.ErrValidation, hex)
	}
	return id, nil
}

// macExact matches a device address exactly, ignoring case.
func macExact(macAddress string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(macAddress) + "$", Options: "i"}
}

// containsInsensitive matches any value containing the fragment, ignoring
// case. Used by listing filters.
func containsInsensitive(fragment string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(fragment), Options: "i"}
}
