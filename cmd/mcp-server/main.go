/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command mcp-server exposes the cell controller, the asset registry and
// device availability as MCP tools over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"

	"github.com/carverauto/cellradar/pkg/availability"
	"github.com/carverauto/cellradar/pkg/config"
	"github.com/carverauto/cellradar/pkg/dispatch"
	cellhttp "github.com/carverauto/cellradar/pkg/http"
	"github.com/carverauto/cellradar/pkg/lifecycle"
	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/mcp"
	"github.com/carverauto/cellradar/pkg/metrics"
	"github.com/carverauto/cellradar/pkg/models"
	"github.com/carverauto/cellradar/pkg/natsutil"
	"github.com/carverauto/cellradar/pkg/plc"
	"github.com/carverauto/cellradar/pkg/registry"
	"github.com/carverauto/cellradar/pkg/scan"
	"github.com/carverauto/cellradar/pkg/version"
)

const serviceName = "cellradar-mcp"

var errFailedToLoadConfig = errors.New("failed to load configuration")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configFile := flag.String("config", "/etc/cellradar/mcp-server.json", "Path to config file")
	flag.Parse()

	ctx := context.Background()

	var cfg models.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configFile, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	appLogger, err := lifecycle.CreateComponentLogger(ctx, "mcp-server", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to shutdown logger: %v", err)
		}
	}()

	appLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting cellradar MCP server")

	if _, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		Logger:         appLogger,
		OTel:           &cfg.Logging.OTel,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	recorder, err := newRecorder(ctx, &cfg, appLogger)
	if err != nil {
		return err
	}

	controller, err := plc.NewLink(
		plc.NewModbusDialer(cfg.Controller.Address, cfg.Controller.UnitID, cfg.Controller.ConnectTimeout.Std()),
		&cfg.Controller,
		appLogger,
	)
	if err != nil {
		return fmt.Errorf("failed to configure controller link: %w", err)
	}

	reg, err := registry.NewClient(&cfg.Registry, appLogger)
	if err != nil {
		return fmt.Errorf("failed to configure registry client: %w", err)
	}

	prober, err := scan.NewProber(&cfg.Probe, appLogger)
	if err != nil {
		return fmt.Errorf("failed to configure prober: %w", err)
	}

	orchestrator := availability.NewOrchestrator(reg, prober, scan.NewClassifier(cfg.Probe.Markers), &cfg.Probe, appLogger,
		availability.WithMetrics(recorder))

	opts := []dispatch.Option{dispatch.WithMetrics(recorder)}

	var nc *nats.Conn

	if cfg.NATS.Enabled {
		publisher, conn, err := natsutil.Connect(ctx, &cfg.NATS, appLogger)
		if err != nil {
			return err
		}

		nc = conn

		opts = append(opts, dispatch.WithEvents(publisher))
	}

	dispatcher := dispatch.New(controller, reg, orchestrator, cfg.Geometry, appLogger, opts...)

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: serviceName,
		Handler:     newHandler(&cfg, dispatcher, appLogger),
		OnShutdown: func(context.Context) error {
			if nc != nil {
				return nc.Drain()
			}

			return nil
		},
	}, appLogger)
}

// newRecorder returns a recorder on the OTLP meter provider, or on the
// global no-op provider when metrics are disabled.
func newRecorder(ctx context.Context, cfg *models.Config, log logger.Logger) (*metrics.Recorder, error) {
	if !cfg.Metrics.Enabled {
		return metrics.NewRecorder(nil), nil
	}

	mp, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		OTel:           &cfg.Logging.OTel,
		ExportInterval: cfg.Metrics.ExportInterval.Std(),
	})

	switch {
	case errors.Is(err, logger.ErrOTelMetricsDisabled):
		log.Warn().Msg("Metrics enabled but no OTLP endpoint is configured; metrics are not exported")

		return metrics.NewRecorder(nil), nil
	case err != nil:
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return metrics.NewRecorder(mp), nil
}

func newHandler(cfg *models.Config, commands mcp.Commands, log logger.Logger) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": version.GetVersion()})
	}).Methods(http.MethodGet)

	mcp.NewServer(commands, log).RegisterRoutes(router)

	router.Use(cellhttp.APIKeyMiddlewareWithOptions(cellhttp.APIKeyOptions{
		APIKey:          cfg.APIKey,
		ExcludePaths:    []string{"/healthz"},
		LogUnauthorized: true,
		Logger:          log,
	}))

	return cellhttp.CommonMiddleware(router, cfg.CORS, log)
}
