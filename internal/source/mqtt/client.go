// Package mqtt connects the monitor to an MQTT broker: it subscribes to the
// device sample topics and publishes actuator commands.
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopicPrefix is the first topic level used when none is configured.
const DefaultTopicPrefix = "safety-monitor"

// Config describes the broker connection.
type Config struct {
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TopicPrefix string        `yaml:"topic_prefix"`
	QoS         byte          `yaml:"qos"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Broker != ""
}

// Topic joins the prefix, device and trailing levels into a topic name.
func Topic(prefix, deviceID string, levels ...string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}

	return strings.Join(append([]string{prefix, deviceID}, levels...), "/")
}

// MessageHandler handles one received message.
type MessageHandler func(topic string, payload []byte)

// Client wraps a connected paho client.
type Client struct {
	client  paho.Client
	timeout time.Duration
}

// Connect dials the broker and waits for the connection to be established.
func Connect(cfg Config) (*Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}

	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	opts.SetConnectTimeout(timeout)

	client := paho.NewClient(opts)

	if err := wait(client.Connect(), timeout); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	return &Client{
		client:  client,
		timeout: timeout,
	}, nil
}

// Subscribe registers handler for topic.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})

	if err := wait(token, c.timeout); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	return nil
}

// Publish sends payload to topic.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if err := wait(c.client.Publish(topic, qos, retained, payload), c.timeout); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
}

// ErrTimeout is returned when the broker does not answer in time.
var ErrTimeout = errors.New("mqtt operation timed out")

func wait(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}

	return token.Error()
}
