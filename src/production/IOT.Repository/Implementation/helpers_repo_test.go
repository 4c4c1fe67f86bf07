package implementation

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

func TestParseObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	parsed, err := ParseObjectID(id.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != id {
		t.Errorf("round trip mismatch: %v vs %v", parsed, id)
	}

	if _, err := ParseObjectID("zz"); !errors.Is(err, iotmodels.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestMacExactQuotesMetaCharacters(t *testing.T) {
	re := macExact("AA:BB.CC")
	if re.Options != "i" {
		t.Errorf("address matching must be case-insensitive, got options %q", re.Options)
	}
	if re.Pattern != `^AA:BB\.CC$` {
		t.Errorf("pattern must be anchored and quoted: %q", re.Pattern)
	}
}

func TestContainsInsensitive(t *testing.T) {
	re := containsInsensitive("b.c")
	if re.Options != "i" || re.Pattern != `b\.c` {
		t.Errorf("unexpected regex: %+v", re)
	}
}
