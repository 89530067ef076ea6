// Package mqttbus wires github.com/eclipse/paho.mqtt.golang into the
// pub/sub transport spec.md §1 and §6 treat as an external collaborator:
// connection, reconnect, subscription wildcard delivery, and retained
// publish. Client-option wiring follows the pattern used across the
// example pack's SDR bridge (mqtt_publisher.go): auto-reconnect,
// bounded keepalive, and background-goroutine error surfacing on
// publish.
package mqttbus

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"gatekeeper/internal/util"
)

// Config configures the broker connection.
type Config struct {
	Broker   string // e.g. "tcp://localhost:1883"
	Username string
	Password string
	ClientID string // generated if empty
}

// Client wraps a paho MQTT client with the hub's logging idiom and
// reconnect policy.
type Client struct {
	inner mqtt.Client
}

// Connect dials the broker synchronously, matching the teacher's
// sequential-fatal-on-startup-error idiom: callers decide whether a
// connect failure is fatal.
func Connect(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "gatekeeper-" + randHex(6)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		util.Linef("[MQTT]", util.ColorGreen, "connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		util.Linef("[MQTT]", util.ColorYellow, "connection lost: %v", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		util.Linef("[MQTT]", util.ColorGray, "reconnecting to %s", cfg.Broker)
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	return &Client{inner: c}, nil
}

// Publish publishes payload to topic. Failures are logged and dropped
// per spec.md §7 (transient I/O); there is no retry queue.
func (c *Client) Publish(topic string, retained bool, payload []byte) {
	token := c.inner.Publish(topic, 0, retained, payload)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			util.Linef("[MQTT]", util.ColorYellow, "publish %s failed: %v", topic, token.Error())
		}
	}()
}

// Subscribe subscribes to a (possibly wildcarded) topic filter, routing
// each message to handler. handler runs on paho's own goroutine; the
// caller must forward into its own serialised queue (spec.md §5).
func (c *Client) Subscribe(filter string, handler func(topic string, payload []byte)) error {
	token := c.inner.Subscribe(filter, 0, func(_ mqtt.Client, m mqtt.Message) {
		handler(m.Topic(), m.Payload())
	})
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt subscribe to %s: timed out", filter)
	}
	return token.Error()
}

// Disconnect gracefully closes the connection.
func (c *Client) Disconnect() {
	c.inner.Disconnect(250)
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
