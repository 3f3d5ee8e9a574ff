// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/polkassembly/govproposer/api"
	"github.com/polkassembly/govproposer/database"
	"github.com/polkassembly/govproposer/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveRun(cmd *cobra.Command, cfg *config.Config) error {
	logger := commonRun()

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		cmd.Context(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	stopTracing := setupTracing(signalCtx, cfg, logger)
	defer stopTracing()

	rt, err := cfg.Runtime()
	if err != nil {
		return err
	}
	assets, err := cfg.AssetRegistry()
	if err != nil {
		return err
	}
	db, err := database.New(cfg.DataDir, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	server, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		PromRegistry:  prometheus.DefaultRegisterer,
		Database:      db,
		Runtime:       rt,
		Assets:        assets,
		Prices:        cfg.PriceTable(),
		Network:       cfg.Network,
		ListenAddress: fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.Port),
		APIKey:        cfg.APIKey,
	})
	if err != nil {
		return err
	}
	if err := server.Start(signalCtx); err != nil {
		return err
	}

	// Metrics listener
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errChan := make(chan error, 1)
	if cfg.MetricsPort > 0 {
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "serve",
		)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("failed to start metrics listener: %w", err)
			}
		}()
	}

	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "serve")
	case err := <-errChan:
		signalCtxStop()
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.ShutdownTimeoutDuration(),
	)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err, "component", "serve")
	}
	//nolint:contextcheck
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("metadata API shutdown error", "error", err, "component", "serve")
	}
	return nil
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proposal metadata API",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig(cmd)
			if err := serveRun(cmd, cfg); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}
