// Package actuator drives the physical light.
//
// Implementations are not safe for concurrent use: the actuation serializer
// is the only caller during the service lifetime.
package actuator

import (
	"context"
	"fmt"

	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/models"
)

// Known backend kinds
const (
	KindSPI  = "spi"
	KindMQTT = "mqtt"
	KindLog  = "log"
)

type Actuator interface {
	// Make the light show the color
	Apply(ctx context.Context, color models.Color) error

	// Release the device, the actuator must not be used after
	Close() error
}

// Settings to build any of the backends
type Config struct {
	Kind string

	// SPI device path, discovered in /dev when empty
	SPIDevice string
	LEDLength int

	MQTT MQTTConfig
}

// New builds an actuator of the configured kind
func New(cfg Config, l logger.Logger) (Actuator, error) {
	switch cfg.Kind {
	case KindSPI:
		return NewSPI(cfg.SPIDevice, cfg.LEDLength)
	case KindMQTT:
		return NewMQTT(cfg.MQTT)
	case KindLog:
		return NewLog(l), nil
	default:
		return nil, fmt.Errorf("unknown actuator kind %q", cfg.Kind)
	}
}
