package broker

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
	interfaces "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Interfaces"
)

// Topics handled by the consumer.
const (
	TopicFeedback      = "api/feedback"
	topicSensorData    = "api/%s/data"
	topicFeedbackRelay = "device/feedback/%s"
)

// SensorDataTopic returns the inbound topic for a device class.
func SensorDataTopic(class string) string {
	return fmt.Sprintf(topicSensorData, class)
}

// FeedbackRelayTopic returns the per-device acknowledgement topic.
func FeedbackRelayTopic(macAddress string) string {
	return fmt.Sprintf(topicFeedbackRelay, macAddress)
}

// EventSink receives push events correlated with broker activity. The
// realtime gateway implements it; a nil sink disables fan-out.
type EventSink interface {
	DeviceAck(macAddress string)
	Telemetry(record iotmodels.TelemetryRecord)
}

// Consumer maps inbound broker messages to stored telemetry records and
// relays device acknowledgements. Failures are terminal per message: the
// message is logged and dropped, never retried, and the subscription loop
// keeps running.
type Consumer struct {
	pub       Publisher
	devices   interfaces.DeviceRepository
	telemetry interfaces.TelemetryRepository
	events    EventSink
	log       *logger.Logger
}

func NewConsumer(pub Publisher, devices interfaces.DeviceRepository, telemetry interfaces.TelemetryRepository, events EventSink, log *logger.Logger) *Consumer {
	return &Consumer{
		pub:       pub,
		devices:   devices,
		telemetry: telemetry,
		events:    events,
		log:       log.WithComponent("consumer"),
	}
}

// Register installs the consumer's subscriptions on the client. The hook
// runs on every (re)connection so the fixed topic set is re-subscribed
// after a drop.
func (c *Consumer) Register(client *Client) {
	client.OnConnect(func(mc mqtt.Client) {
		c.subscribe(mc, TopicFeedback, c.handleFeedback)
		for _, class := range SensorClasses {
			c.subscribe(mc, SensorDataTopic(class), c.sensorHandler(class))
		}
	})
}

func (c *Consumer) subscribe(mc mqtt.Client, topic string, handler mqtt.MessageHandler) {
	c.log.Info("subscribing to " + topic)
	if token := mc.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		c.log.ErrorWithError(token.Error(), "subscribe failed: "+topic)
	}
}

// handleFeedback re-publishes a device acknowledgement on that device's
// own feedback topic, so a component waiting on one device can subscribe
// narrowly. Nothing is persisted.
func (c *Consumer) handleFeedback(_ mqtt.Client, m mqtt.Message) {
	macAddress := string(m.Payload())
	if macAddress == "" {
		c.log.Warn("empty feedback payload dropped")
		return
	}

	c.log.WithField("macAddress", macAddress).Debug("device acknowledgement")

	if err := c.pub.Publish(FeedbackRelayTopic(macAddress), m.Payload()); err != nil {
		c.log.ErrorWithError(err, "feedback relay failed")
		return
	}
	if c.events != nil {
		c.events.DeviceAck(macAddress)
	}
}

func (c *Consumer) sensorHandler(class string) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		c.ingest(context.Background(), class, m.Payload())
	}
}

// ingest resolves the owning device and persists one telemetry record. A
// message referencing an unregistered address is dropped: broker
// redelivery is not assumed and the condition usually means a stale or
// unregistered device. Duplicate deliveries produce duplicate records.
func (c *Consumer) ingest(ctx context.Context, class string, payload []byte) {
	macAddress, reading, err := DecodeSensorMessage(class, payload)
	if err != nil {
		c.log.ErrorWithError(err, "sensor message dropped")
		return
	}

	device, err := c.devices.FindByMac(ctx, macAddress)
	if err != nil {
		c.log.WithField("macAddress", macAddress).ErrorWithError(err, "sensor message dropped: device not resolved")
		return
	}

	record := iotmodels.TelemetryRecord{
		MacAddress: macAddress,
		CreatedBy:  device.ID,
		Data:       reading,
		Flag:       false,
	}
	if err := c.telemetry.Insert(ctx, record); err != nil {
		c.log.WithField("macAddress", macAddress).ErrorWithError(err, "telemetry insert failed")
		return
	}

	c.log.WithField("macAddress", macAddress).Info(class + " data saved")

	if c.events != nil {
		c.events.Telemetry(record)
	}
}
