package broker

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Config"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
)

// Publisher is the outbound half of the broker connection. The command
// dispatcher and the ingestion consumer's relay path publish through it.
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// Client owns the process-wide MQTT connection: a single session with an
// explicit lifecycle instead of ambient global state. The client
// identifier doubles as username and password on the broker. Reconnection
// runs at a fixed interval, indefinitely, until Disconnect.
type Client struct {
	cfg       config.MQTTConfig
	brokerURL string
	log       *logger.Logger

	mu   sync.Mutex
	mqtt mqtt.Client
	onUp []func(mqtt.Client)
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		cfg:       cfg.MQTT,
		brokerURL: cfg.GetMQTTBrokerURL(),
		log:       log.WithComponent("mqtt"),
	}
}

// OnConnect registers a hook run on every successful (re)connection.
// Subscriptions belong here so they are re-established after a drop.
// Hooks must be registered before Connect.
func (c *Client) OnConnect(hook func(mqtt.Client)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUp = append(c.onUp, hook)
}

func (c *Client) Connect() error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.brokerURL).
		SetClientID(c.cfg.ClientID).
		SetUsername(c.cfg.ClientID).
		SetPassword(c.cfg.ClientID).
		SetKeepAlive(c.cfg.KeepAlive).
		SetPingTimeout(c.cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(c.cfg.ReconnectInterval).
		SetMaxReconnectInterval(c.cfg.ReconnectInterval)

	if c.cfg.UseTLS {
		tlsCfg, err := c.tlsConfig(c.cfg.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.log.ErrorWithError(err, "broker connection lost")
	}
	opts.OnConnect = func(mc mqtt.Client) {
		c.log.Info("connected to " + c.brokerURL)
		c.mu.Lock()
		hooks := make([]func(mqtt.Client), len(c.onUp))
		copy(hooks, c.onUp)
		c.mu.Unlock()
		for _, hook := range hooks {
			hook(mc)
		}
	}

	c.mqtt = mqtt.NewClient(opts)
	if tk := c.mqtt.Connect(); tk.Wait() && tk.Error() != nil {
		return fmt.Errorf("broker connect: %w", tk.Error())
	}
	return nil
}

func (c *Client) Disconnect() {
	if c.mqtt != nil && c.mqtt.IsConnected() {
		c.mqtt.Disconnect(500)
	}
}

func (c *Client) IsConnected() bool {
	return c.mqtt != nil && c.mqtt.IsConnected()
}

// Publish sends a message at QoS 0 and waits for the client to accept it.
func (c *Client) Publish(topic string, payload interface{}) error {
	if c.mqtt == nil {
		return fmt.Errorf("broker client not connected")
	}
	token := c.mqtt.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.cfg.InsecureSkipVerify,
	}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}
