package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/deskled/internal/actuator"
	"github.com/nkiryanov/deskled/internal/db"
	"github.com/nkiryanov/deskled/internal/handlers"
	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/repository/postgres"
	"github.com/nkiryanov/deskled/internal/service/actuation"
	"github.com/nkiryanov/deskled/internal/service/fulfillment"
	"github.com/nkiryanov/deskled/internal/service/oauth2"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	serializer *actuation.Serializer
	pool       *pgxpool.Pool
	logger     logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN, c.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	app, err := newServerApp(c, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return app, nil
}

func newServerApp(c *Config, pool *pgxpool.Pool, logger logger.Logger) (*ServerApp, error) {
	storage := postgres.NewStorage(pool)

	authority, err := oauth2.NewAuthority(oauth2.Config{
		ClientID:     c.OAuth2.ClientID,
		ClientSecret: c.OAuth2.ClientSecret,
		Username:     c.Login.Username,
		Password:     c.Login.Password,
	}, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating token authority. Err: %w", err)
	}

	// The light itself, optionally recorded to InfluxDB
	light, err := actuator.New(c.ActuatorConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("error while opening actuator. Err: %w", err)
	}
	if c.Influx.URL != "" {
		recorded, err := actuator.NewInflux(light, actuator.InfluxConfig{
			URL:    c.Influx.URL,
			Token:  c.Influx.Token,
			Org:    c.Influx.Org,
			Bucket: c.Influx.Bucket,
		}, logger)
		if err != nil {
			_ = light.Close()
			return nil, fmt.Errorf("error while connecting to influxdb. Err: %w", err)
		}
		light = recorded
	}

	serializer := actuation.New(light, c.LED.QueueSize, logger)

	dispatcher, err := fulfillment.NewDispatcher(fulfillment.Config{
		AgentUserID: c.Login.Username,
		SWVersion:   version,
	}, storage, serializer)
	if err != nil {
		_ = light.Close()
		return nil, fmt.Errorf("error while creating fulfillment dispatcher. Err: %w", err)
	}

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handlers.NewRouter(authority, dispatcher, logger),
		serializer: serializer,
		pool:       pool,
		logger:     logger,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
// The actuation queue is drained after the last request finished, the db pool is closed last
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	// Outlives ctx, stopped only when http server is down
	actuationCtx, stopActuation := context.WithCancel(context.WithoutCancel(ctx))
	actuationStopped := s.serializer.Run(actuationCtx)
	defer func() {
		stopActuation()
		<-actuationStopped
		s.logger.Info("Actuation stopped")
	}()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr, "version", version)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
