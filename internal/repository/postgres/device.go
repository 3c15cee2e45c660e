package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/models"
)

// Arbitrary but fixed key of the device advisory lock
const deviceLockKey int64 = 0x6465736b6c6564

type DeviceRepo struct {
	DB DBTX
}

const lockDevice = `-- name: LockDevice
SELECT pg_advisory_xact_lock($1)
`

// Blocks until every other transaction holding the lock finishes
// Must be called inside a transaction, the lock is released with it
func (r *DeviceRepo) Lock(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, lockDevice, deviceLockKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getColor = `-- name: GetColor
SELECT r, g, b FROM device_color
LIMIT 1
`

func (r *DeviceRepo) GetColor(ctx context.Context) (models.Color, error) {
	rows, _ := r.DB.Query(ctx, getColor)
	color, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.Color, error) {
		var c models.Color
		err := row.Scan(&c.R, &c.G, &c.B)
		return c, err
	})

	switch {
	case err == nil:
		return color, nil
	case errors.Is(err, pgx.ErrNoRows):
		return color, fmt.Errorf("repo error: %w", apperrors.ErrColorNotSet)
	default:
		return color, fmt.Errorf("db error: %w", err)
	}
}

const updateColor = `-- name: UpdateColor
UPDATE device_color
SET r = $1, g = $2, b = $3
`

const insertColor = `-- name: InsertColor
INSERT INTO device_color (r, g, b)
VALUES ($1, $2, $3)
`

func (r *DeviceRepo) SetColor(ctx context.Context, color models.Color) error {
	tag, err := r.DB.Exec(ctx, updateColor, color.R, color.G, color.B)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.DB.Exec(ctx, insertColor, color.R, color.G, color.B)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getPower = `-- name: GetPower
SELECT is_on FROM device_state
LIMIT 1
`

func (r *DeviceRepo) GetPower(ctx context.Context) (bool, error) {
	rows, _ := r.DB.Query(ctx, getPower)
	on, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])

	switch {
	case err == nil:
		return on, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, fmt.Errorf("repo error: %w", apperrors.ErrPowerNotSet)
	default:
		return false, fmt.Errorf("db error: %w", err)
	}
}

const updatePower = `-- name: UpdatePower
UPDATE device_state
SET is_on = $1
`

const insertPower = `-- name: InsertPower
INSERT INTO device_state (is_on)
VALUES ($1)
`

func (r *DeviceRepo) SetPower(ctx context.Context, on bool) error {
	tag, err := r.DB.Exec(ctx, updatePower, on)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.DB.Exec(ctx, insertPower, on)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
