package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Payload is the MQTT message for one record
type Payload struct {
	Usage UsagePayload `json:"usage"`
}

// UsagePayload holds the fields of a record
type UsagePayload struct {
	Seq       uint64  `json:"seq"`
	Timestamp string  `json:"timestamp"`
	Percent   float32 `json:"percent"`
	Working   uint32  `json:"working_cycles"`
	Sleeping  uint32  `json:"sleeping_cycles"`
}

// FormatPayload creates the JSON payload for a record
func FormatPayload(rec Record) ([]byte, error) {
	return json.Marshal(Payload{
		Usage: UsagePayload{
			Seq:       rec.Seq,
			Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
			Percent:   rec.Percent,
			Working:   rec.Working,
			Sleeping:  rec.Sleeping,
		},
	})
}

// MQTTPublisher publishes records to an MQTT broker
type MQTTPublisher struct {
	client paho.Client
	topic  string
}

// NewMQTTPublisher creates a publisher connected to the given broker
func NewMQTTPublisher(broker, topic, clientID string) (*MQTTPublisher, error) {
	if topic == "" {
		return nil, errors.New("mqtt topic is empty")
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return newMQTTPublisher(client, topic), nil
}

func newMQTTPublisher(client paho.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		topic:  topic,
	}
}

// Publish sends one record. Reports are periodic, so QoS 0 and not retained.
func (p *MQTTPublisher) Publish(ctx context.Context, rec Record) error {
	payload, err := FormatPayload(rec)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish: %w", ctx.Err())
	case <-time.After(5 * time.Second):
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
