// Package diagnostic (system) reports the health of the vehicle process
// itself alongside the control loop snapshot.
package diagnostic

import (
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/steer-rc/controller/pkg/status"
	"github.com/steer-rc/controller/pkg/vehicle"
)

// SystemMetrics represents system diagnostics information
type SystemMetrics struct {
	Timestamp  time.Time      `json:"timestamp"`
	Uptime     string         `json:"uptime"`
	Goroutines int            `json:"goroutines"`
	HeapAlloc  uint64         `json:"heap_alloc_bytes"`
	NumGC      uint32         `json:"num_gc"`
	Vehicle    vehicle.Status `json:"vehicle"`
}

// DiagnosticService handles system diagnostics
type DiagnosticService struct {
	board   *status.Board[vehicle.Status]
	started time.Time
	now     func() time.Time
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(board *status.Board[vehicle.Status]) *DiagnosticService {
	return &DiagnosticService{
		board:   board,
		started: time.Now(),
		now:     time.Now,
	}
}

// GetMetrics returns the current system metrics
func (s *DiagnosticService) GetMetrics() SystemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := s.now()
	return SystemMetrics{
		Timestamp:  now,
		Uptime:     now.Sub(s.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		NumGC:      mem.NumGC,
		Vehicle:    s.board.Load(),
	}
}

// GetMetricsHandler handles API requests for system metrics
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetMetrics(),
	})
}

// StatusHandler serves only the control loop snapshot
func (s *DiagnosticService) StatusHandler(c *fiber.Ctx) error {
	return c.JSON(s.board.Load())
}
