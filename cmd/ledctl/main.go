// Command ledctl sets the whole strip to one color and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/deskled/internal/actuator"
	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/models"
)

type options struct {
	actuator.Config

	Red, Green, Blue uint8
	LogLevel         string
}

func parseFlags(args []string) (options, error) {
	o := options{Config: actuator.Config{Kind: actuator.KindSPI}}

	fs := pflag.NewFlagSet("ledctl", pflag.ContinueOnError)
	fs.StringVarP(&o.SPIDevice, "dev", "d", "", "SPI device path, discovered in /dev when empty")
	fs.IntVarP(&o.LEDLength, "length", "l", 0, "Number of LEDs on the strip")
	fs.Uint8VarP(&o.Red, "red", "r", 0, "Red channel")
	fs.Uint8VarP(&o.Green, "green", "g", 0, "Green channel")
	fs.Uint8VarP(&o.Blue, "blue", "b", 0, "Blue channel")
	fs.StringVar(&o.Kind, "actuator", o.Kind, "Actuator backend (spi, mqtt, log)")
	fs.StringVar(&o.MQTT.Broker, "mqtt-broker", "", "MQTT broker url")
	fs.StringVar(&o.MQTT.Topic, "mqtt-topic", "deskled/color", "MQTT topic")
	fs.StringVar(&o.MQTT.ClientID, "mqtt-client-id", "ledctl", "MQTT client id")
	fs.StringVar(&o.LogLevel, "log-level", logger.LevelInfo, "Logging level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.Kind == actuator.KindSPI && !fs.Changed("length") {
		return o, fmt.Errorf("--length is required for spi actuator")
	}
	return o, nil
}

func run(ctx context.Context, args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	l, err := logger.NewTextLogger(o.LogLevel)
	if err != nil {
		return err
	}

	a, err := actuator.New(o.Config, l)
	if err != nil {
		return fmt.Errorf("can't open actuator. Is SPI enabled? Err: %w", err)
	}
	defer a.Close() // nolint:errcheck

	if spi, ok := a.(*actuator.SPI); ok {
		l.Debug("SPI device acquired", "path", spi.Path(), "length", o.LEDLength)
	}

	color := models.Color{R: o.Red, G: o.Green, B: o.Blue}
	if err := a.Apply(ctx, color); err != nil {
		return fmt.Errorf("can't set color %s. Err: %w", color, err)
	}

	l.Info("Color set", "color", color.String())
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ledctl:", err)
		os.Exit(1)
	}
}
