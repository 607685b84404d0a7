package sink

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ColonelBlimp/cwtone/internal/cw"
)

// MQTTConfig holds broker settings for the MQTT sink
type MQTTConfig struct {
	Broker string // e.g. tcp://localhost:1883
	Topic  string
	QoS    byte
}

// publisher is the part of mqtt.Client the sink uses
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each event as JSON. Publishing is asynchronous; delivery failures are
// logged and never stall the decoder.
type MQTT struct {
	client publisher
	topic  string
	qos    byte
}

// generateClientID creates a random MQTT client ID
func generateClientID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "cwtone_" + hex.EncodeToString(b)
}

// NewMQTT connects to the broker. A failed first connection is logged, not returned;
// the client keeps retrying in the background.
func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt: broker and topic are required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(generateClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("mqtt: connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt: connection lost: %v (will auto-reconnect)", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(5 * time.Second) {
		if err := token.Error(); err != nil {
			log.Printf("mqtt: initial connection failed: %v (will retry in background)", err)
		}
	} else {
		log.Printf("mqtt: connection timeout (will retry in background)")
	}

	return newMQTT(client, cfg), nil
}

func newMQTT(client publisher, cfg MQTTConfig) *MQTT {
	return &MQTT{client: client, topic: cfg.Topic, qos: cfg.QoS}
}

func (m *MQTT) Write(out cw.DecodedOutput) error {
	data, err := json.Marshal(NewEvent(out))
	if err != nil {
		return fmt.Errorf("mqtt: marshal event: %w", err)
	}

	token := m.client.Publish(m.topic, m.qos, false, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("mqtt: publish to %s failed: %v", m.topic, token.Error())
		}
	}()
	return nil
}

// Close disconnects, allowing in-flight messages a short time to drain
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
