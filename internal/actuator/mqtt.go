package actuator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nkiryanov/deskled/internal/models"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultKeepAlive      = 60 * time.Second

	// Milliseconds to wait for in-flight messages on disconnect
	disconnectQuiesce = 250
)

var (
	ErrMQTTConnect = errors.New("mqtt: connection failed")
	ErrMQTTPublish = errors.New("mqtt: publish failed")
)

type MQTTConfig struct {
	// Broker URL like tcp://localhost:1883
	Broker   string
	ClientID string
	Username string
	Password string

	// Topic the color is published to, retained
	Topic string
}

// Message published on every color change
type ColorMessage struct {
	R           uint8 `json:"r"`
	G           uint8 `json:"g"`
	B           uint8 `json:"b"`
	SpectrumRGB int32 `json:"spectrumRGB"`
}

// MQTT publishes colors for a remote light controller
type MQTT struct {
	client pahomqtt.Client
	topic  string
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("%w: broker and topic are required", ErrMQTTConnect)
	}

	client := pahomqtt.NewClient(buildClientOptions(cfg))
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrMQTTConnect, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMQTTConnect, err)
	}

	return &MQTT{client: client, topic: cfg.Topic}, nil
}

func buildClientOptions(cfg MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	return opts
}

func (a *MQTT) Apply(ctx context.Context, color models.Color) error {
	payload, err := EncodeColorMessage(color)
	if err != nil {
		return err
	}

	token := a.client.Publish(a.topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrMQTTPublish, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrMQTTPublish, err)
	}
	return nil
}

func (a *MQTT) Close() error {
	a.client.Disconnect(disconnectQuiesce)
	return nil
}

func EncodeColorMessage(color models.Color) ([]byte, error) {
	return json.Marshal(ColorMessage{
		R:           color.R,
		G:           color.G,
		B:           color.B,
		SpectrumRGB: color.SpectrumRGB(),
	})
}
