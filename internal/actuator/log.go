package actuator

import (
	"context"

	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/models"
)

// Log only reports colors, used when no hardware is attached
type Log struct {
	logger logger.Logger
}

func NewLog(l logger.Logger) *Log {
	return &Log{logger: l.With("actuator", KindLog)}
}

func (a *Log) Apply(_ context.Context, color models.Color) error {
	a.logger.Info("color applied", "r", color.R, "g", color.G, "b", color.B)
	return nil
}

func (a *Log) Close() error {
	return nil
}
