package broker

import (
	"fmt"

	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
)

// Command identifies a device-scoped control channel.
type Command string

const (
	CommandDHT11  Command = "dht11"
	CommandLED    Command = "led"
	CommandCamera Command = "camera"
)

// CommandTopic returns the control topic for a command/address/action.
func CommandTopic(cmd Command, macAddress string, start bool) string {
	action := "stop"
	if start {
		action = "start"
	}
	return fmt.Sprintf("device/pi/%s/%s/%s", cmd, macAddress, action)
}

// Dispatcher publishes start/stop control messages to device-scoped
// topics. Fire-and-forget: success means the broker client accepted the
// publish, not that the device confirmed. Confirmation, if any, arrives
// asynchronously on the feedback topic handled by the consumer.
type Dispatcher struct {
	pub Publisher
	log *logger.Logger
}

func NewDispatcher(pub Publisher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, log: log.WithComponent("dispatcher")}
}

// Dispatch publishes one control message. No retries, no waiting on acks.
func (d *Dispatcher) Dispatch(cmd Command, macAddress string, status bool) error {
	switch cmd {
	case CommandDHT11, CommandLED, CommandCamera:
	default:
		return fmt.Errorf("%w: unknown command %q", iotmodels.ErrValidation, cmd)
	}
	if macAddress == "" {
		return fmt.Errorf("%w: macAddress is required", iotmodels.ErrValidation)
	}

	topic := CommandTopic(cmd, macAddress, status)
	if err := d.pub.Publish(topic, []byte{}); err != nil {
		return err
	}
	d.log.WithField("topic", topic).Debug("command dispatched")
	return nil
}
