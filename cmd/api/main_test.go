package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ConfiguracionInvalidaDevuelveError(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "mongo")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cargar configuración")
}

func TestRun_FalloDelMotorDevuelveError(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "sqlite")
	t.Setenv("LEDGER_SQLITE_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("LEDGER_LANE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inicializar motor de ledger")
}
