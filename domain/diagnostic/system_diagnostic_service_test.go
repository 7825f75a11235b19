package diagnostic

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steer-rc/controller/pkg/protocol"
	"github.com/steer-rc/controller/pkg/telemetry"
	"github.com/steer-rc/controller/pkg/vehicle"
)

func TestDiagnosticService_Staleness(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewDiagnosticService(time.Second)
	s.now = func() time.Time { return now }

	d := s.GetVehicleStatus()
	assert.False(t, d.Available)
	assert.True(t, d.Stale)

	s.UpdateVehicleStatus(telemetry.Snapshot{SessionID: "a", Direction: protocol.Forward, Connected: true})
	d = s.GetVehicleStatus()
	assert.True(t, d.Available)
	assert.False(t, d.Stale)
	assert.Equal(t, uint64(1), d.Messages)
	assert.True(t, d.Vehicle.Connected)

	now = now.Add(2 * time.Second)
	assert.True(t, s.GetVehicleStatus().Stale)
}

func TestDiagnosticService_NewSession(t *testing.T) {
	s := NewDiagnosticService(time.Second)
	var sessions []string
	s.OnNewSession(func(id string) { sessions = append(sessions, id) })

	s.UpdateVehicleStatus(telemetry.Snapshot{SessionID: "a"})
	s.UpdateVehicleStatus(telemetry.Snapshot{SessionID: "a"})
	s.UpdateVehicleStatus(telemetry.Snapshot{SessionID: "b"})

	assert.Equal(t, []string{"a", "b"}, sessions)
}

func TestDiagnosticService_Handler(t *testing.T) {
	s := NewDiagnosticService(time.Minute)
	s.UpdateVehicleStatus(telemetry.Snapshot{
		SessionID: "veh",
		Direction: protocol.Reverse,
		State:     vehicle.StateReverseReady,
	})

	app := fiber.New()
	app.Get("/api/diagnostics", s.GetMetricsHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/diagnostics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status      string `json:"status"`
		Diagnostics struct {
			Available bool `json:"available"`
			Vehicle   struct {
				SessionID string `json:"session_id"`
				State     string `json:"state"`
				Direction int    `json:"direction"`
			} `json:"vehicle"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.True(t, body.Diagnostics.Available)
	assert.Equal(t, "veh", body.Diagnostics.Vehicle.SessionID)
	assert.Equal(t, "reverse_ready", body.Diagnostics.Vehicle.State)
	assert.Equal(t, -1, body.Diagnostics.Vehicle.Direction)
}
