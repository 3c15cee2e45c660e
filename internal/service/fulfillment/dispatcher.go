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

// Id of the only device exposed
const DeviceID = "0"

type Intent string

const (
	IntentSync       Intent = "action.devices.SYNC"
	IntentQuery      Intent = "action.devices.QUERY"
	IntentExecute    Intent = "action.devices.EXECUTE"
	IntentDisconnect Intent = "action.devices.DISCONNECT"
)

// Request body could not be decoded
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode fulfillment request: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type serializer interface {
	// Must keep order of enqueued colors
	Enqueue(color models.Color) error
}

type Config struct {
	// Reported as agentUserId on SYNC
	AgentUserID string

	// Reported as device software version
	SWVersion string
}

// Dispatcher routes fulfillment intents for the single light
type Dispatcher struct {
	agentUserID string
	swVersion   string

	storage   repository.Storage
	actuation serializer
}

func NewDispatcher(cfg Config, storage repository.Storage, actuation serializer) (*Dispatcher, error) {
	if storage == nil || actuation == nil {
		return nil, errors.New("storage and actuation must not be nil")
	}

	return &Dispatcher{
		agentUserID: cfg.AgentUserID,
		swVersion:   cfg.SWVersion,
		storage:     storage,
		actuation:   actuation,
	}, nil
}

// Envelope decoded just to pick the intent
type envelope struct {
	RequestID string `json:"requestId"`
	Inputs    []struct {
		Intent Intent `json:"intent"`
	} `json:"inputs"`
}

// Envelope decoded with the intent specific payload
type request[T any] struct {
	RequestID string `json:"requestId"`
	Inputs    []struct {
		Payload T `json:"payload"`
	} `json:"inputs"`
}

type deviceRef struct {
	ID string `json:"id"`
}

type response[T any] struct {
	RequestID string `json:"requestId"`
	Payload   T      `json:"payload"`
}

// Handle decodes the raw body and returns the response to render as JSON
// Only the first input intent matters
func (d *Dispatcher) Handle(ctx context.Context, body []byte) (any, error) {
	var env envelope
	if err := decode(body, &env); err != nil {
		return nil, err
	}

	if len(env.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", apperrors.ErrBadRequest)
	}

	switch intent := env.Inputs[0].Intent; intent {
	case IntentSync:
		return d.sync(env.RequestID), nil
	case IntentQuery:
		return d.query(ctx, body)
	case IntentExecute:
		return d.execute(ctx, body)
	case IntentDisconnect:
		return struct{}{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown intent %q", apperrors.ErrBadRequest, intent)
	}
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// Reported device state, shared by QUERY and EXECUTE
type DeviceState struct {
	On         bool        `json:"on"`
	Online     bool        `json:"online"`
	Brightness uint8       `json:"brightness"`
	Color      DeviceColor `json:"color"`
}

type DeviceColor struct {
	SpectrumRGB int32 `json:"spectrumRGB"`
}

// Read stored state, a light never touched is black and off
func readState(ctx context.Context, device repository.DeviceRepo) (DeviceState, error) {
	color, err := device.GetColor(ctx)
	switch {
	case errors.Is(err, apperrors.ErrColorNotSet):
		color = models.Black
	case err != nil:
		return DeviceState{}, err
	}

	on, err := device.GetPower(ctx)
	switch {
	case errors.Is(err, apperrors.ErrPowerNotSet):
		on = false
	case err != nil:
		return DeviceState{}, err
	}

	state := DeviceState{
		On:     on,
		Online: true,
		Color:  DeviceColor{SpectrumRGB: color.SpectrumRGB()},
	}
	if on {
		state.Brightness = color.Brightness()
	}

	return state, nil
}
