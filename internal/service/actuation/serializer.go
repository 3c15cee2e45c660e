package actuation

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/models"
)

const (
	DefaultQueueSize = 250

	// Upper bound for a single Apply, a stuck device must not stall the queue forever
	defaultApplyTimeout = 5 * time.Second
)

type actuator interface {
	Apply(ctx context.Context, color models.Color) error
	Close() error
}

// Serializer is the only path to the actuator
// Colors are applied one by one in the order they were enqueued
type Serializer struct {
	queue        chan models.Color
	applyTimeout time.Duration

	// Guards closed, set once the consumer starts shutting down
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup

	stopped chan struct{}

	actuator actuator
	logger   logger.Logger
}

// New creates serializer with queue of size colors, DefaultQueueSize if size is not positive
func New(a actuator, size int, l logger.Logger) *Serializer {
	if size <= 0 {
		size = DefaultQueueSize
	}

	return &Serializer{
		queue:        make(chan models.Color, size),
		applyTimeout: defaultApplyTimeout,
		stopped:      make(chan struct{}),
		actuator:     a,
		logger:       l.With("component", "actuation"),
	}
}

// Enqueue blocks while the queue is full and can't be cancelled
// Returns apperrors.ErrActuationStopped once the consumer is shutting down
func (s *Serializer) Enqueue(color models.Color) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return apperrors.ErrActuationStopped
	}
	s.inflight.Add(1)
	s.mu.RUnlock()
	defer s.inflight.Done()

	s.queue <- color
	return nil
}

// Run starts the consumer
// When ctx is done, already accepted colors are applied, then the actuator is closed
func (s *Serializer) Run(ctx context.Context) <-chan struct{} {
	go func() {
		defer close(s.stopped)

		s.logger.Debug("Serializer started", "queue_size", cap(s.queue))
		applyCtx := context.WithoutCancel(ctx)

		for {
			select {
			case <-ctx.Done():
				s.shutdown(applyCtx)
				return
			case color := <-s.queue:
				s.apply(applyCtx, color)
			}
		}
	}()

	return s.stopped
}

func (s *Serializer) shutdown(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	// Senders already past the closed check still get their colors applied
	go func() {
		s.inflight.Wait()
		close(s.queue)
	}()

	drained := 0
	for color := range s.queue {
		s.apply(ctx, color)
		drained++
	}

	if err := s.actuator.Close(); err != nil {
		s.logger.Error("Failed to close actuator", "error", err)
	}
	s.logger.Debug("Serializer stopped", "drained", drained)
}

func (s *Serializer) apply(ctx context.Context, color models.Color) {
	ctx, cancel := context.WithTimeout(ctx, s.applyTimeout)
	defer cancel()

	if err := s.actuator.Apply(ctx, color); err != nil {
		s.logger.Error("Failed to apply color", "error", err, "color", color.String())
	}
}
