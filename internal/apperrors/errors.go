package apperrors

import (
	"errors"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidGrant = errors.New("invalid grant")
	ErrBadRequest   = errors.New("bad request")

	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExists   = errors.New("token already exists")

	ErrColorNotSet = errors.New("device color is not set")
	ErrPowerNotSet = errors.New("device power state is not set")

	// Consumer of the actuation queue is gone, nothing will ever reach the light again
	ErrActuationStopped = errors.New("actuation serializer stopped")
)
