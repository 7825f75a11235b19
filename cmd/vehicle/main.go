package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	sysdiag "github.com/steer-rc/controller/domain/system_diagnostic"
	"github.com/steer-rc/controller/pkg/actuator"
	"github.com/steer-rc/controller/pkg/api"
	"github.com/steer-rc/controller/pkg/config"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/metrics"
	"github.com/steer-rc/controller/pkg/status"
	"github.com/steer-rc/controller/pkg/telemetry"
	"github.com/steer-rc/controller/pkg/transport"
	"github.com/steer-rc/controller/pkg/vehicle"
	"github.com/steer-rc/controller/pkg/zeromq"
)

const statusStreamInterval = 100 * time.Millisecond

func main() {
	configDir := flag.String("config-dir", envOr("STEER_RC_CONFIG_DIR", "config"), "directory holding "+config.VehicleBootstrapFile)
	flag.Parse()

	bootstrap, err := config.LoadBootstrapConfig(*configDir, config.VehicleBootstrapFile)
	if err != nil {
		log.Fatalf("Failed to load bootstrap config: %v", err)
	}

	logger, err := customlog.NewLogrusLogger(bootstrap.Logging.Level, bootstrap.Logging.LogPath, "vehicle", bootstrap.Logging.GelfAddress)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	vehicleCfg, err := loadVehicleConfig(bootstrap.ConfigPath(), logger)
	if err != nil {
		logger.Fatalf("Invalid vehicle configuration: %v", err)
	}

	rx, err := transport.Listen(vehicleCfg.ListenAddress)
	if err != nil {
		logger.Fatalf("Failed to open command socket: %v", err)
	}
	logger.Infof("Listening for commands on %s", rx.LocalAddr())

	driver := actuator.NewLogDriver(logger, vehicleCfg)
	logger.Infof("Arming ESC for %v", vehicleCfg.ESC.ArmDuration)
	if err := actuator.Arm(driver, vehicleCfg.ESC, time.Sleep); err != nil {
		logger.Fatalf("Failed to arm ESC: %v", err)
	}

	metricsCfg := bootstrap.Telemetry.Metrics
	metricsProvider, err := metrics.NewProvider(metrics.Config{
		Enabled:     metricsCfg.Enabled,
		ServiceName: "steer-rc-vehicle",
		Interval:    metricsCfg.Interval,
		Path:        metricsCfg.Path,
	})
	if err != nil {
		logger.Fatalf("Failed to start metrics export: %v", err)
	}
	if metricsProvider.Enabled() {
		logger.Infof("Exporting metrics every %v", metricsCfg.Interval)
	}

	vehicleMetrics, err := metrics.NewVehicle(metricsProvider.Meter())
	if err != nil {
		logger.Fatalf("Failed to create metrics: %v", err)
	}

	feed := status.NewFeed(logger, 128)
	controller, err := vehicle.NewController(vehicleCfg, rx, driver, logger, vehicle.Options{
		Feed:    feed,
		Metrics: vehicleMetrics,
	})
	if err != nil {
		logger.Fatalf("Failed to create vehicle controller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controller.Run(ctx); err != nil {
			logger.Errorf("Vehicle loop exited: %v", err)
		}
	}()

	var zmqService *zeromq.ZeroMQService
	if bootstrap.Telemetry.Enabled && bootstrap.Telemetry.PublishAddress != "" {
		zmqService, err = zeromq.NewZeroMQService(bootstrap.Telemetry.PublishAddress, logger)
		if err != nil {
			logger.Fatalf("Failed to create telemetry publisher: %v", err)
		}
		if err := zmqService.Start(); err != nil {
			logger.Fatalf("Failed to start telemetry publisher: %v", err)
		}

		publisher := zeromq.NewStatusPublisher(zmqService, func() telemetry.Snapshot {
			return telemetry.FromStatus(controller.Status(), time.Now())
		}, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Run(ctx, bootstrap.Telemetry.PublishHz)
		}()
	}

	var app *fiber.App
	if bootstrap.Server.HTTPPort > 0 {
		app = api.NewServer("Steer-RC Vehicle", "steer-rc vehicle")
		diagnosticService := sysdiag.NewDiagnosticService(controller.Board())

		apiGroup := app.Group("/api")
		apiGroup.Get("/v1/status", diagnosticService.StatusHandler)
		apiGroup.Get("/diagnostics", diagnosticService.GetMetricsHandler)

		api.RegisterStatusStream(app, func() interface{} { return controller.Status() }, feed, statusStreamInterval, logger)

		go func() {
			addr := fmt.Sprintf(":%d", bootstrap.Server.HTTPPort)
			logger.Infof("Status server starting on %s", addr)
			if err := app.Listen(addr); err != nil {
				logger.Errorf("Status server stopped: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down vehicle...")

	cancel()
	// Unblocks the pending receive; the loop then drives neutral and exits.
	if err := rx.Close(); err != nil {
		logger.Warnf("Error closing command socket: %v", err)
	}
	wg.Wait()

	if zmqService != nil {
		zmqService.Stop()
	}
	if err := driver.Close(); err != nil {
		logger.Warnf("Error closing actuator driver: %v", err)
	}

	if app != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Errorf("Server forced to shutdown: %v", err)
		}
	}

	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsProvider.Shutdown(metricsCtx); err != nil {
		logger.Warnf("Error flushing metrics: %v", err)
	}

	logger.Infof("Vehicle exited properly")
}

// loadVehicleConfig reads the operational config, falling back to defaults
// when the file does not exist.
func loadVehicleConfig(path string, logger customlog.Logger) (config.VehicleConfig, error) {
	cfg, err := config.LoadVehicleConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("Vehicle config %s not found, using defaults", path)
		return config.DefaultVehicleConfig(), nil
	}
	return cfg, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
