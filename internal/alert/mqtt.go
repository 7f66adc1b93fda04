package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTNotifier publishes events as JSON to <topic>/<kind>.
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTNotifier wraps an already connected client.
func NewMQTTNotifier(client mqtt.Client, topic string) *MQTTNotifier {
	return &MQTTNotifier{client: client, topic: strings.TrimSuffix(topic, "/"), qos: 1}
}

// ConnectMQTT connects to broker (host:port) with auto-reconnect enabled.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", strings.TrimPrefix(broker, "tcp://")))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		slog.Info("mqtt connection established", "broker", broker, "client_id", clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		slog.Warn("mqtt connection lost, will auto-reconnect", "broker", broker, "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return client, nil
}

// Topic returns the topic an event of kind is published to.
func (n *MQTTNotifier) Topic(kind Kind) string {
	return n.topic + "/" + string(kind)
}

func (n *MQTTNotifier) Notify(ctx context.Context, e Event) error {
	if !n.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := n.client.Publish(n.Topic(e.Kind), n.qos, false, payload)

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}
