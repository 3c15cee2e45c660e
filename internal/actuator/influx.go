package actuator

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/models"
)

const (
	influxPingTimeout = 5 * time.Second
	measurementColor  = "led_color"
)

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Part of api.WriteAPI used to record points
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Influx records every applied color to InfluxDB and passes it to the wrapped actuator
// Writes are batched and never block actuation
type Influx struct {
	next   Actuator
	writer pointWriter
	close  func()
	now    func() time.Time
}

func NewInflux(next Actuator, cfg InfluxConfig, l logger.Logger) (*Influx, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), influxPingTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil || !healthy {
		client.Close()
		return nil, fmt.Errorf("influxdb at %s is not reachable. Err: %v", cfg.URL, err)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	l = l.With("component", "influxdb")
	go func() {
		for err := range writeAPI.Errors() {
			l.Warn("telemetry write failed", "error", err)
		}
	}()

	return newInflux(next, writeAPI, client.Close), nil
}

func newInflux(next Actuator, writer pointWriter, closeFn func()) *Influx {
	return &Influx{next: next, writer: writer, close: closeFn, now: time.Now}
}

func (a *Influx) Apply(ctx context.Context, color models.Color) error {
	err := a.next.Apply(ctx, color)
	a.writer.WritePoint(colorPoint(color, err, a.now()))
	return err
}

func (a *Influx) Close() error {
	a.writer.Flush()
	if a.close != nil {
		a.close()
	}
	return a.next.Close()
}

func colorPoint(color models.Color, applyErr error, ts time.Time) *write.Point {
	status := "ok"
	if applyErr != nil {
		status = "error"
	}

	return write.NewPoint(
		measurementColor,
		map[string]string{
			"device_id": "0",
			"status":    status,
		},
		map[string]any{
			"r":          int64(color.R),
			"g":          int64(color.G),
			"b":          int64(color.B),
			"brightness": int64(color.Brightness()),
		},
		ts,
	)
}
