package broker

import (
	"encoding/json"
	"fmt"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

// Device classes producing telemetry, one inbound topic each.
const (
	ClassDHT11  = "dht11"
	ClassCamera = "camera"
)

// SensorClasses is the fixed set of telemetry-producing device classes.
var SensorClasses = []string{ClassDHT11, ClassCamera}

// sensorEnvelope is the common wire shape of every sensor message: the
// reporting device's address plus a class-specific data payload.
type sensorEnvelope struct {
	MacAddress string          `json:"macAddress"`
	Data       json.RawMessage `json:"data"`
}

// DHT11Reading is the payload variant for environmental sensors.
type DHT11Reading struct {
	Temperature float64 `json:"temperature" bson:"temperature"`
	Humidity    float64 `json:"humidity" bson:"humidity"`
}

// CameraReading is the payload variant for camera captures.
type CameraReading struct {
	Image string `json:"image" bson:"image"`
}

// DecodeSensorMessage decodes a raw sensor payload into its class-specific
// variant, returning the reporting device address and the typed reading.
func DecodeSensorMessage(class string, payload []byte) (string, interface{}, error) {
	var env sensorEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, fmt.Errorf("%w: malformed sensor payload: %v", iotmodels.ErrValidation, err)
	}
	if env.MacAddress == "" {
		return "", nil, fmt.Errorf("%w: sensor payload missing macAddress", iotmodels.ErrValidation)
	}

	switch class {
	case ClassDHT11:
		var reading DHT11Reading
		if err := json.Unmarshal(env.Data, &reading); err != nil {
			return "", nil, fmt.Errorf("%w: malformed dht11 data: %v", iotmodels.ErrValidation, err)
		}
		return env.MacAddress, reading, nil

	case ClassCamera:
		var reading CameraReading
		if err := json.Unmarshal(env.Data, &reading); err != nil {
			return "", nil, fmt.Errorf("%w: malformed camera data: %v", iotmodels.ErrValidation, err)
		}
		return env.MacAddress, reading, nil

	default:
		return "", nil, fmt.Errorf("%w: unknown device class %q", iotmodels.ErrValidation, class)
	}
}
