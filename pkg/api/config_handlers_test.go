package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steer-rc/controller/pkg/config"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/services"
)

func newConfigApp(t *testing.T) (*fiber.App, services.ControlConfigService) {
	t.Helper()
	logger := customlog.NewDiscardLogger()
	svc, err := services.NewControlConfigService("", logger)
	require.NoError(t, err)

	app := NewServer("test", "test")
	RegisterConfigRoutes(app, svc, logger)
	return app, svc
}

func putYAML(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest("PUT", "/api/v1/config/control", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, "application/x-yaml")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestGetControlConfig(t *testing.T) {
	app, _ := newConfigApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/config/control", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-yaml", resp.Header.Get(fiber.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	cfg, err := config.ParseControlConfig(body)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultControlConfig(), cfg)
}

func TestUpdateControlConfig(t *testing.T) {
	app, svc := newConfigApp(t)

	assert.Equal(t, fiber.StatusOK, putYAML(t, app, "throttle_range: 80\nudp_host: 10.0.0.7\n"))
	assert.Equal(t, 80.0, svc.Current().ThrottleRange)
	assert.Equal(t, "10.0.0.7", svc.Current().UDPHost)
}

func TestUpdateControlConfig_Rejected(t *testing.T) {
	app, svc := newConfigApp(t)
	before := svc.Current()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"bad yaml", "steer_range: [1, 2"},
		{"fails validation", "deadzone: 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, fiber.StatusBadRequest, putYAML(t, app, tt.body))
			assert.Same(t, before, svc.Current())
		})
	}
}

func TestServer_HealthAndUpgradeRequired(t *testing.T) {
	logger := customlog.NewDiscardLogger()
	app := NewServer("test", "vehicle")
	RegisterStatusStream(app, func() interface{} { return fiber.Map{} }, nil, 0, logger)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/ws/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}

func TestControlMessage_Sample(t *testing.T) {
	var cm ControlMessage
	require.NoError(t, json.Unmarshal([]byte(`{"steer":-0.5,"throttle":0.2,"brake":-1,"buttons":[4,19]}`), &cm))

	s := cm.Sample()
	assert.Equal(t, -0.5, s.Axes.Steer)
	assert.Equal(t, 0.2, s.Axes.Throttle)
	assert.Equal(t, -1.0, s.Axes.Brake)
	assert.Equal(t, []int{4, 19}, s.Buttons)
}
