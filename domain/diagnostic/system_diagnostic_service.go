package diagnostic

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/steer-rc/controller/pkg/telemetry"
)

// VehicleDiagnostics is the latest vehicle state seen on the telemetry bus
type VehicleDiagnostics struct {
	Available  bool               `json:"available"`
	Stale      bool               `json:"stale"`
	ReceivedAt time.Time          `json:"received_at"`
	Messages   uint64             `json:"messages"`
	Vehicle    telemetry.Snapshot `json:"vehicle"`
}

// DiagnosticService keeps the vehicle telemetry received by the operator
type DiagnosticService struct {
	mu         sync.RWMutex
	latest     telemetry.Snapshot
	receivedAt time.Time
	messages   uint64
	sessionID  string

	staleAfter time.Duration
	now        func() time.Time
	onSession  func(sessionID string)
}

// NewDiagnosticService creates a new diagnostic service instance. Telemetry
// older than staleAfter is reported as stale.
func NewDiagnosticService(staleAfter time.Duration) *DiagnosticService {
	return &DiagnosticService{
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// OnNewSession registers a callback for when a vehicle with a new session
// id starts publishing, e.g. after a vehicle restart.
func (s *DiagnosticService) OnNewSession(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSession = fn
}

// UpdateVehicleStatus stores a snapshot. It is the telemetry listener's handler.
func (s *DiagnosticService) UpdateVehicleStatus(snap telemetry.Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.receivedAt = s.now()
	s.messages++
	var notify func(string)
	if snap.SessionID != s.sessionID {
		s.sessionID = snap.SessionID
		notify = s.onSession
	}
	s.mu.Unlock()

	if notify != nil {
		notify(snap.SessionID)
	}
}

// GetVehicleStatus returns the current vehicle diagnostics
func (s *DiagnosticService) GetVehicleStatus() VehicleDiagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := VehicleDiagnostics{
		Available:  s.messages > 0,
		ReceivedAt: s.receivedAt,
		Messages:   s.messages,
		Vehicle:    s.latest,
	}
	d.Stale = !d.Available || s.now().Sub(s.receivedAt) > s.staleAfter
	return d
}

// GetMetricsHandler handles API requests for vehicle diagnostics
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "success",
		"diagnostics": s.GetVehicleStatus(),
	})
}
