package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/steer-rc/controller/domain/diagnostic"
	"github.com/steer-rc/controller/domain/teleop"
	"github.com/steer-rc/controller/pkg/api"
	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/input"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/metrics"
	"github.com/steer-rc/controller/pkg/status"
	"github.com/steer-rc/controller/pkg/zeromq"
	"github.com/steer-rc/controller/services"
)

const (
	statusStreamInterval = 100 * time.Millisecond
	telemetryStaleAfter  = 2 * time.Second
)

func main() {
	configDir := flag.String("config-dir", envOr("STEER_RC_CONFIG_DIR", "config"), "directory holding "+config.OperatorBootstrapFile)
	flag.Parse()

	bootstrap, err := config.LoadBootstrapConfig(*configDir, config.OperatorBootstrapFile)
	if err != nil {
		log.Fatalf("Failed to load bootstrap config: %v", err)
	}

	logger, err := customlog.NewLogrusLogger(bootstrap.Logging.Level, bootstrap.Logging.LogPath, "operator", bootstrap.Logging.GelfAddress)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if bootstrap.Server.HTTPPort <= 0 {
		logger.Fatalf("The operator needs server.http_port: the control input and teleop API are served over HTTP")
	}

	configPath := bootstrap.ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Warnf("Control config %s not found, using defaults", configPath)
		configPath = ""
	}
	configService, err := services.NewControlConfigService(configPath, logger)
	if err != nil {
		logger.Fatalf("Invalid control configuration: %v", err)
	}

	feed := status.NewFeed(logger, 128)

	metricsCfg := bootstrap.Telemetry.Metrics
	metricsProvider, err := metrics.NewProvider(metrics.Config{
		Enabled:     metricsCfg.Enabled,
		ServiceName: "steer-rc-operator",
		Interval:    metricsCfg.Interval,
		Path:        metricsCfg.Path,
	})
	if err != nil {
		logger.Fatalf("Failed to start metrics export: %v", err)
	}
	if metricsProvider.Enabled() {
		logger.Infof("Exporting metrics every %v", metricsCfg.Interval)
	}

	operatorMetrics, err := metrics.NewOperator(metricsProvider.Meter())
	if err != nil {
		logger.Fatalf("Failed to create metrics: %v", err)
	}

	// The input timeout is read once; the device outlives config updates.
	device := input.NewRemoteDevice("remote", configService.Current().InputTimeout)
	teleopService := teleop.NewTeleopService(configService, device, teleop.UDPSenderFactory, feed, operatorMetrics, logger)
	configService.SetListener(func(cfg *config.ControlConfig) {
		feed.Infof("control configuration updated: target %s:%d, throttle range %.0f", cfg.UDPHost, cfg.UDPPort, cfg.ThrottleRange)
		teleopService.ConfigChanged(cfg)
	})

	diagnosticService := diagnostic.NewDiagnosticService(telemetryStaleAfter)
	diagnosticService.OnNewSession(func(sessionID string) {
		feed.Infof("vehicle session %s", sessionID)
	})

	var listener *zeromq.StatusListener
	if bootstrap.Telemetry.Enabled && bootstrap.Telemetry.SubscribeAddress != "" {
		listener, err = zeromq.NewStatusListener(bootstrap.Telemetry.SubscribeAddress, diagnosticService.UpdateVehicleStatus, logger)
		if err != nil {
			logger.Warnf("Failed to start vehicle status listener: %v", err)
		} else {
			listener.Start()
		}
	}

	app := api.NewServer("Steer-RC Operator", "steer-rc operator")

	v1 := app.Group("/api/v1")
	v1.Get("/status", teleopService.StatusHandler)
	teleopRoutes := v1.Group("/teleop")
	teleopRoutes.Post("/start", teleopService.StartHandler)
	teleopRoutes.Post("/stop", teleopService.StopHandler)
	teleopRoutes.Post("/test-packet", teleopService.TestPacketHandler)

	app.Get("/api/diagnostics", diagnosticService.GetMetricsHandler)
	api.RegisterConfigRoutes(app, configService, logger)

	api.RegisterControlStream(app, device, logger)
	api.RegisterStatusStream(app, func() interface{} {
		return fiber.Map{
			"teleop":  teleopService.Status(),
			"vehicle": diagnosticService.GetVehicleStatus(),
		}
	}, feed, statusStreamInterval, logger)

	go func() {
		addr := fmt.Sprintf(":%d", bootstrap.Server.HTTPPort)
		logger.Infof("Operator server starting on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down operator...")

	// Sends the final stop command before the socket closes.
	if teleopService.Running() {
		if err := teleopService.Stop(); err != nil {
			logger.Warnf("Error stopping teleop: %v", err)
		}
	}
	device.Close()
	if listener != nil {
		listener.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := metricsProvider.Shutdown(ctx); err != nil {
		logger.Warnf("Error flushing metrics: %v", err)
	}

	logger.Infof("Operator exited properly")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
