package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/models"
	"github.com/nkiryanov/deskled/internal/repository"
)

type CommandType string

const (
	CommandBrightnessAbsolute CommandType = "action.devices.commands.BrightnessAbsolute"
	CommandColorAbsolute      CommandType = "action.devices.commands.ColorAbsolute"
	CommandOnOff              CommandType = "action.devices.commands.OnOff"
)

// Unknown command types fail decoding
func (t *CommandType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch ct := CommandType(s); ct {
	case CommandBrightnessAbsolute, CommandColorAbsolute, CommandOnOff:
		*t = ct
		return nil
	default:
		return fmt.Errorf("unknown command %q", s)
	}
}

// Command as sent by the client, params depend on the command type
type rawCommand struct {
	Command CommandType `json:"command"`
	Params  struct {
		Brightness *uint8 `json:"brightness"`
		Color      *struct {
			SpectrumRGB *int32 `json:"spectrumRGB"`
		} `json:"color"`
		On *bool `json:"on"`
	} `json:"params"`
}

// Command is one of BrightnessAbsolute, ColorAbsolute, OnOff
type Command interface {
	apply(ctx context.Context, ex *execution) error
}

type BrightnessAbsolute struct {
	Brightness uint8
}

type ColorAbsolute struct {
	Color models.Color
}

type OnOff struct {
	On bool
}

// parse checks the params required by the command type
func (c rawCommand) parse() (Command, error) {
	p := c.Params

	switch c.Command {
	case CommandBrightnessAbsolute:
		if p.Brightness == nil {
			return nil, fmt.Errorf("%w: brightness is required", apperrors.ErrBadRequest)
		}
		return BrightnessAbsolute{Brightness: *p.Brightness}, nil

	case CommandColorAbsolute:
		if p.Color == nil || p.Color.SpectrumRGB == nil {
			return nil, fmt.Errorf("%w: color.spectrumRGB is required", apperrors.ErrBadRequest)
		}
		color, err := models.ColorFromSpectrumRGB(*p.Color.SpectrumRGB)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrBadRequest, err)
		}
		return ColorAbsolute{Color: color}, nil

	case CommandOnOff:
		if p.On == nil {
			return nil, fmt.Errorf("%w: on is required", apperrors.ErrBadRequest)
		}
		return OnOff{On: *p.On}, nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", apperrors.ErrBadRequest, c.Command)
	}
}

// State of a running EXECUTE transaction
// Colors are collected and handed to the serializer only when every command succeeded
type execution struct {
	device  repository.DeviceRepo
	pending []models.Color
}

func (ex *execution) color(ctx context.Context, fallback models.Color) (models.Color, error) {
	color, err := ex.device.GetColor(ctx)
	if errors.Is(err, apperrors.ErrColorNotSet) {
		return fallback, nil
	}
	return color, err
}

func (ex *execution) power(ctx context.Context) (bool, error) {
	on, err := ex.device.GetPower(ctx)
	if errors.Is(err, apperrors.ErrPowerNotSet) {
		return false, nil
	}
	return on, err
}

// Replace color value channel, power follows brightness
func (c BrightnessAbsolute) apply(ctx context.Context, ex *execution) error {
	current, err := ex.color(ctx, models.Black)
	if err != nil {
		return err
	}

	color := current.WithBrightness(c.Brightness)
	ex.pending = append(ex.pending, color)

	if err := ex.device.SetColor(ctx, color); err != nil {
		return err
	}
	return ex.device.SetPower(ctx, c.Brightness > 0)
}

// Color set while the light is off is remembered but not shown
func (c ColorAbsolute) apply(ctx context.Context, ex *execution) error {
	on, err := ex.power(ctx)
	if err != nil {
		return err
	}

	if on {
		ex.pending = append(ex.pending, c.Color)
	}

	return ex.device.SetColor(ctx, c.Color)
}

// Turning on restores the stored color, black becomes white
// Turning off keeps the stored color for the next turn on
func (c OnOff) apply(ctx context.Context, ex *execution) error {
	if !c.On {
		ex.pending = append(ex.pending, models.Black)
		return ex.device.SetPower(ctx, false)
	}

	color, err := ex.color(ctx, models.White)
	if err != nil {
		return err
	}
	if color.IsOff() {
		color = models.White
	}

	ex.pending = append(ex.pending, color)

	if err := ex.device.SetPower(ctx, true); err != nil {
		return err
	}
	return ex.device.SetColor(ctx, color)
}
