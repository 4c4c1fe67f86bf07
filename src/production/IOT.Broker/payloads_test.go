package broker

import (
	"errors"
	"testing"

	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

func TestDecodeSensorMessage(t *testing.T) {
	t.Run("dht11 reading", func(t *testing.T) {
		payload := []byte(`{"macAddress":"AA:BB:CC:DD:EE:FF","data":{"temperature":23.5,"humidity":61.2}}`)
		mac, reading, err := DecodeSensorMessage(ClassDHT11, payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mac != "AA:BB:CC:DD:EE:FF" {
			t.Errorf("unexpected macAddress: %q", mac)
		}
		dht, ok := reading.(DHT11Reading)
		if !ok {
			t.Fatalf("expected DHT11Reading, got %T", reading)
		}
		if dht.Temperature != 23.5 || dht.Humidity != 61.2 {
			t.Errorf("unexpected reading: %+v", dht)
		}
	})

	t.Run("camera reading", func(t *testing.T) {
		payload := []byte(`{"macAddress":"aa:bb:cc:dd:ee:ff","data":{"image":"base64pixels"}}`)
		mac, reading, err := DecodeSensorMessage(ClassCamera, payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mac != "aa:bb:cc:dd:ee:ff" {
			t.Errorf("unexpected macAddress: %q", mac)
		}
		cam, ok := reading.(CameraReading)
		if !ok {
			t.Fatalf("expected CameraReading, got %T", reading)
		}
		if cam.Image != "base64pixels" {
			t.Errorf("unexpected reading: %+v", cam)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		if _, _, err := DecodeSensorMessage(ClassDHT11, []byte("{not json")); !errors.Is(err, iotmodels.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("missing macAddress", func(t *testing.T) {
		payload := []byte(`{"data":{"temperature":1,"humidity":2}}`)
		if _, _, err := DecodeSensorMessage(ClassDHT11, payload); !errors.Is(err, iotmodels.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("unknown class", func(t *testing.T) {
		payload := []byte(`{"macAddress":"AA:BB","data":{}}`)
		if _, _, err := DecodeSensorMessage("sonar", payload); !errors.Is(err, iotmodels.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestTopicNames(t *testing.T) {
	if got := SensorDataTopic(ClassDHT11); got != "api/dht11/data" {
		t.Errorf("unexpected sensor topic: %q", got)
	}
	if got := FeedbackRelayTopic("AA:BB:CC"); got != "device/feedback/AA:BB:CC" {
		t.Errorf("unexpected relay topic: %q", got)
	}
	if got := CommandTopic(CommandLED, "AA:BB:CC", true); got != "device/pi/led/AA:BB:CC/start" {
		t.Errorf("unexpected command topic: %q", got)
	}
	if got := CommandTopic(CommandCamera, "AA:BB:CC", false); got != "device/pi/camera/AA:BB:CC/stop" {
		t.Errorf("unexpected command topic: %q", got)
	}
}
