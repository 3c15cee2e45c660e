package fulfillment

import (
	"context"
	"fmt"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/repository"
)

type queryPayload struct {
	Devices []deviceRef `json:"devices"`
}

type queryResult struct {
	// Every entry maps device id to its state
	Devices []map[string]DeviceState `json:"devices"`
}

func (d *Dispatcher) query(ctx context.Context, body []byte) (any, error) {
	var req request[queryPayload]
	if err := decode(body, &req); err != nil {
		return nil, err
	}
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", apperrors.ErrBadRequest)
	}

	devices := req.Inputs[0].Payload.Devices
	if len(devices) == 0 || devices[0].ID != DeviceID {
		return response[queryResult]{RequestID: req.RequestID, Payload: queryResult{Devices: []map[string]DeviceState{}}}, nil
	}

	var state DeviceState
	err := d.storage.InTx(ctx, func(s repository.Storage) error {
		// Keeps color and power consistent with concurrent EXECUTE
		if err := s.Device().Lock(ctx); err != nil {
			return err
		}

		var err error
		state, err = readState(ctx, s.Device())
		return err
	})
	if err != nil {
		return nil, err
	}

	return response[queryResult]{
		RequestID: req.RequestID,
		Payload: queryResult{
			Devices: []map[string]DeviceState{{DeviceID: state}},
		},
	}, nil
}
