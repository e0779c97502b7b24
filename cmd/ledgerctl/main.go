// Command ledgerctl operación del ledger de inventario: reconstrucción, verificación y catálogo.
package main

import (
	"context"
	"os"

	"github.com/jhoicas/stocker-ledger/internal/bootstrap"
	"github.com/jhoicas/stocker-ledger/pkg/config"
	"github.com/jhoicas/stocker-ledger/pkg/logger"
)

func main() {
	open := func(ctx context.Context) (*bootstrap.Engine, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg.Metrics.Enabled = false
		log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: os.Stderr})
		return bootstrap.Build(ctx, cfg, log)
	}
	if err := newRootCmd(open, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
