package feedback

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"wifictl/internal/supervisor"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 10 * time.Second
)

// MQTTOptions configure the broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// Message is the retained payload published on every phase change.
type Message struct {
	Phase   supervisor.Phase `json:"phase"`
	From    supervisor.Phase `json:"from"`
	Event   supervisor.Event `json:"event"`
	Network string           `json:"network,omitempty"`
	At      time.Time        `json:"at"`
	Online  bool             `json:"online"`
}

// MQTT publishes phase changes to a broker. It never blocks on the network;
// paho queues and retries in the background.
type MQTT struct {
	client mqtt.Client
	topic  string
}

var _ supervisor.Feedback = (*MQTT)(nil)

func NewMQTT(client mqtt.Client, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

// DialMQTT connects to the broker with auto-reconnect and a retained offline
// will on the status topic. A broker that is not yet reachable is not an
// error; paho keeps retrying.
func DialMQTT(o MQTTOptions) (mqtt.Client, error) {
	will, err := json.Marshal(Message{Phase: supervisor.PhaseIdle, At: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetOrderMatters(false).
		SetBinaryWill(o.Topic, will, mqttQoS, true).
		SetOnConnectHandler(func(mqtt.Client) {
			zap.S().Infow("mqtt connected", "broker", o.Broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			zap.S().Warnw("mqtt connection lost", "broker", o.Broker, "error", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if tok.WaitTimeout(mqttConnectTimeout) && tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", o.Broker, tok.Error())
	}
	return client, nil
}

func (m *MQTT) PhaseChanged(c supervisor.Change) {
	payload, err := json.Marshal(Message{
		Phase:   c.To,
		From:    c.From,
		Event:   c.Event,
		Network: c.Network,
		At:      c.At.UTC(),
		Online:  true,
	})
	if err != nil {
		zap.S().Warnw("failed to encode mqtt status", "error", err)
		return
	}
	tok := m.client.Publish(m.topic, mqttQoS, true, payload)
	go func() {
		if tok.WaitTimeout(mqttPublishTimeout) && tok.Error() != nil {
			zap.S().Warnw("mqtt publish failed", "topic", m.topic, "error", tok.Error())
		}
	}()
}

// Close disconnects after giving queued messages a moment to flush.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
