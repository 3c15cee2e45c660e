package main

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/deskled/internal/testutil"
)

func Test_run(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	port, err := testutil.RandomPort()
	require.NoError(t, err, "failed to get random port to start server")
	listenAddr := fmt.Sprintf("localhost:%d", port)

	noenv := func(string) string { return "" }
	wd := func() (string, error) { return t.TempDir(), nil }

	t.Run("stop with signal", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond) // Half Second
		t.Cleanup(cancel)

		err = run(ctx, noenv, wd, []string{
			"--address", listenAddr,
			"--log-level", "debug",
			"--database", pg.DSN,
			"--client-id", "client",
			"--client-secret", "secret",
			"--login-username", "admin",
			"--login-password", "pwd",
			"--actuator", "log",
		})

		require.NoError(t, err, "on correct stop should not return error")
	})

	t.Run("stop with config error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond) // Half Second
		t.Cleanup(cancel)

		// Try to run without client credentials. Must fail
		err := run(ctx, noenv, wd, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
			"--actuator", "log",
		})

		require.ErrorContains(t, err, "invalid config")
	})

	t.Run("config file", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond) // Half Second
		t.Cleanup(cancel)

		path := t.TempDir() + "/deskled.yaml"
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
listen_address: %q
database_dsn: %q
oauth2: {client_id: client, client_secret: secret}
login: {username: admin, password: pwd}
led: {actuator: log}
`, listenAddr, pg.DSN)), 0o600))

		err := run(ctx, noenv, wd, []string{"--config", path})

		require.NoError(t, err, "config from file should be enough to start")
	})
}
