package fulfillment

import (
	"context"
	"fmt"
	"slices"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/repository"
)

const statusSuccess = "SUCCESS"

type executePayload struct {
	Commands []commandGroup `json:"commands"`
}

type commandGroup struct {
	Devices   []deviceRef  `json:"devices"`
	Execution []rawCommand `json:"execution"`
}

type executeResult struct {
	Commands []commandResult `json:"commands"`
}

type commandResult struct {
	IDs    []string    `json:"ids"`
	Status string      `json:"status"`
	States DeviceState `json:"states"`
}

func (g commandGroup) targetsLight() bool {
	return slices.ContainsFunc(g.Devices, func(d deviceRef) bool {
		return d.ID == DeviceID
	})
}

func (d *Dispatcher) execute(ctx context.Context, body []byte) (any, error) {
	var req request[executePayload]
	if err := decode(body, &req); err != nil {
		return nil, err
	}
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", apperrors.ErrBadRequest)
	}

	groups := req.Inputs[0].Payload.Commands
	empty := response[executeResult]{RequestID: req.RequestID, Payload: executeResult{Commands: []commandResult{}}}

	// Validate every group before the transaction opens
	commands := make([]Command, 0, len(groups))
	for _, g := range groups {
		if !g.targetsLight() {
			return empty, nil
		}

		for _, raw := range g.Execution {
			cmd, err := raw.parse()
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)
		}
	}

	// Enqueued colors can't be withdrawn, nothing below may be cancelled
	ctx = context.WithoutCancel(ctx)

	var state DeviceState
	err := d.storage.InTx(ctx, func(s repository.Storage) error {
		device := s.Device()
		if err := device.Lock(ctx); err != nil {
			return err
		}

		ex := &execution{device: device}
		for _, cmd := range commands {
			if err := cmd.apply(ctx, ex); err != nil {
				return err
			}
		}

		var err error
		state, err = readState(ctx, device)
		if err != nil {
			return err
		}

		// Still under the lock, so the light sees colors in commit order
		for _, color := range ex.pending {
			if err := d.actuation.Enqueue(color); err != nil {
				return fmt.Errorf("can't enqueue color %s. Err: %w", color, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// One aggregate status repeated for every group
	results := make([]commandResult, len(groups))
	for i := range results {
		results[i] = commandResult{IDs: []string{DeviceID}, Status: statusSuccess, States: state}
	}

	return response[executeResult]{RequestID: req.RequestID, Payload: executeResult{Commands: results}}, nil
}
