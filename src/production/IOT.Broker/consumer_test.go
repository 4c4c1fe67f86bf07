package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
	interfaces "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Interfaces"
)

type memoryDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]iotmodels.Device
}

func newMemoryDeviceRepo() *memoryDeviceRepo {
	return &memoryDeviceRepo{devices: make(map[string]iotmodels.Device)}
}

func (r *memoryDeviceRepo) add(device iotmodels.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[strings.ToLower(device.MacAddress)] = device
}

func (r *memoryDeviceRepo) FindByMac(_ context.Context, macAddress string) (*iotmodels.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[strings.ToLower(macAddress)]
	if !ok {
		return nil, fmt.Errorf("%w: device %s", iotmodels.ErrNotFound, macAddress)
	}
	return &device, nil
}

func (r *memoryDeviceRepo) FindByID(context.Context, primitive.ObjectID) (*iotmodels.Device, error) {
	return nil, iotmodels.ErrNotFound
}

func (r *memoryDeviceRepo) Create(context.Context, *iotmodels.Device) error { return nil }

func (r *memoryDeviceRepo) Update(context.Context, primitive.ObjectID, iotmodels.Device) (*iotmodels.Device, error) {
	return nil, iotmodels.ErrNotFound
}

func (r *memoryDeviceRepo) Delete(context.Context, primitive.ObjectID, primitive.ObjectID) (*iotmodels.Device, error) {
	return nil, iotmodels.ErrNotFound
}

func (r *memoryDeviceRepo) ListByUser(context.Context, interfaces.DeviceListQuery) (*interfaces.DeviceListResult, error) {
	return &interfaces.DeviceListResult{}, nil
}

func (r *memoryDeviceRepo) EnsureIndexes(context.Context) error { return nil }

type memoryTelemetryRepo struct {
	mu      sync.Mutex
	records []iotmodels.TelemetryRecord
	err     error
}

func (r *memoryTelemetryRepo) Insert(_ context.Context, record iotmodels.TelemetryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *memoryTelemetryRepo) Aggregate(context.Context, iotmodels.TelemetryQuery) (*iotmodels.AggregatedResult, error) {
	return &iotmodels.AggregatedResult{}, nil
}

func (r *memoryTelemetryRepo) FindByMac(context.Context, iotmodels.MacQuery) (*iotmodels.MacResult, error) {
	return &iotmodels.MacResult{}, nil
}

func (r *memoryTelemetryRepo) SoftDelete(context.Context, primitive.ObjectID) error { return nil }

func (r *memoryTelemetryRepo) stored() []iotmodels.TelemetryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]iotmodels.TelemetryRecord, len(r.records))
	copy(out, r.records)
	return out
}

type recordingSink struct {
	mu      sync.Mutex
	acks    []string
	records []iotmodels.TelemetryRecord
}

func (s *recordingSink) DeviceAck(macAddress string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks = append(s.acks, macAddress)
}

func (s *recordingSink) Telemetry(record iotmodels.TelemetryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newTestConsumer() (*Consumer, *fakePublisher, *memoryDeviceRepo, *memoryTelemetryRepo, *recordingSink) {
	pub := &fakePublisher{}
	devices := newMemoryDeviceRepo()
	telemetry := &memoryTelemetryRepo{}
	sink := &recordingSink{}
	consumer := NewConsumer(pub, devices, telemetry, sink, logger.Discard())
	return consumer, pub, devices, telemetry, sink
}

func TestConsumerFeedbackRelay(t *testing.T) {
	consumer, pub, _, _, sink := newTestConsumer()

	consumer.handleFeedback(nil, &fakeMessage{topic: TopicFeedback, payload: []byte("AA:BB:CC:DD:EE:FF")})

	messages := pub.published()
	if len(messages) != 1 {
		t.Fatalf("expected one relay publish, got %d", len(messages))
	}
	if messages[0].topic != "device/feedback/AA:BB:CC:DD:EE:FF" {
		t.Errorf("unexpected relay topic: %q", messages[0].topic)
	}
	if len(sink.acks) != 1 || sink.acks[0] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("expected one acknowledgement event, got %v", sink.acks)
	}
}

func TestConsumerFeedbackEmptyPayloadDropped(t *testing.T) {
	consumer, pub, _, _, sink := newTestConsumer()

	consumer.handleFeedback(nil, &fakeMessage{topic: TopicFeedback})

	if len(pub.published()) != 0 {
		t.Errorf("empty feedback must not relay, got %+v", pub.published())
	}
	if len(sink.acks) != 0 {
		t.Errorf("empty feedback must not emit events, got %v", sink.acks)
	}
}

func TestConsumerIngestStoresRecord(t *testing.T) {
	consumer, _, devices, telemetry, sink := newTestConsumer()

	deviceID := primitive.NewObjectID()
	devices.add(iotmodels.Device{ID: deviceID, MacAddress: "AA:BB:CC:DD:EE:FF", Type: "dht11"})

	payload := []byte(`{"macAddress":"AA:BB:CC:DD:EE:FF","data":{"temperature":22.1,"humidity":55}}`)
	consumer.ingest(context.Background(), ClassDHT11, payload)

	records := telemetry.stored()
	if len(records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(records))
	}
	if records[0].CreatedBy != deviceID {
		t.Errorf("record should reference the owning device, got %v", records[0].CreatedBy)
	}
	if records[0].Flag {
		t.Error("new records must not be soft deleted")
	}
	reading, ok := records[0].Data.(DHT11Reading)
	if !ok {
		t.Fatalf("expected typed DHT11Reading, got %T", records[0].Data)
	}
	if reading.Temperature != 22.1 || reading.Humidity != 55 {
		t.Errorf("unexpected reading: %+v", reading)
	}
	if len(sink.records) != 1 {
		t.Errorf("expected one telemetry event, got %d", len(sink.records))
	}
}

func TestConsumerIngestUnknownDeviceDropped(t *testing.T) {
	consumer, _, _, telemetry, sink := newTestConsumer()

	payload := []byte(`{"macAddress":"00:00:00:00:00:00","data":{"temperature":1,"humidity":2}}`)
	consumer.ingest(context.Background(), ClassDHT11, payload)

	if len(telemetry.stored()) != 0 {
		t.Errorf("unregistered device must not persist records, got %+v", telemetry.stored())
	}
	if len(sink.records) != 0 {
		t.Errorf("dropped message must not emit events")
	}
}

func TestConsumerIngestMalformedPayloadDropped(t *testing.T) {
	consumer, _, devices, telemetry, _ := newTestConsumer()
	devices.add(iotmodels.Device{ID: primitive.NewObjectID(), MacAddress: "AA:BB:CC"})

	consumer.ingest(context.Background(), ClassDHT11, []byte("{broken"))

	if len(telemetry.stored()) != 0 {
		t.Errorf("malformed payload must not persist records")
	}
}

func TestConsumerIngestDuplicateDeliveries(t *testing.T) {
	consumer, _, devices, telemetry, _ := newTestConsumer()
	devices.add(iotmodels.Device{ID: primitive.NewObjectID(), MacAddress: "AA:BB:CC:DD:EE:FF"})

	payload := []byte(`{"macAddress":"AA:BB:CC:DD:EE:FF","data":{"temperature":22.1,"humidity":55}}`)
	consumer.ingest(context.Background(), ClassDHT11, payload)
	consumer.ingest(context.Background(), ClassDHT11, payload)

	// No dedup: redelivery produces a second record.
	if got := len(telemetry.stored()); got != 2 {
		t.Errorf("expected two stored records, got %d", got)
	}
}
