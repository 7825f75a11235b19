package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/protocol"
)

const released = -1.0

func TestApplyDeadzone(t *testing.T) {
	for _, v := range []float64{0, 0.001, -0.001, 0.0199, -0.0199} {
		assert.Equal(t, 0.0, ApplyDeadzone(v, 0.02), "value %v", v)
	}
	assert.Equal(t, 0.02, ApplyDeadzone(0.02, 0.02))
	assert.Equal(t, -0.5, ApplyDeadzone(-0.5, 0.02))
}

func TestSteeringAngle(t *testing.T) {
	cfg := config.DefaultControlConfig()

	assert.Equal(t, 11.5, SteeringAngle(0.5, cfg))
	assert.Equal(t, 23.0, SteeringAngle(1, cfg))
	assert.Equal(t, -23.0, SteeringAngle(-1, cfg))
	assert.Equal(t, 0.0, SteeringAngle(0.019, cfg))

	for x := -1.0; x <= 1.0; x += 0.037 {
		assert.Equal(t, -SteeringAngle(x, cfg), SteeringAngle(-x, cfg), "x=%v", x)
	}
}

func TestSteeringAngle_ClampsOutOfRange(t *testing.T) {
	cfg := config.DefaultControlConfig()
	cfg.SteeringSensitivity = 2

	assert.Equal(t, 23.0, SteeringAngle(0.9, cfg))
	assert.Equal(t, -23.0, SteeringAngle(-7, cfg))
	assert.Equal(t, 0.0, SteeringAngle(math.NaN(), cfg))
}

func TestThrottleCurve(t *testing.T) {
	assert.Equal(t, 0.0, ThrottleCurve(0))
	assert.Equal(t, 100.0, ThrottleCurve(100))
	assert.Equal(t, 25.0, ThrottleCurve(50))

	prev := ThrottleCurve(0)
	for v := 0.5; v <= 100; v += 0.5 {
		cur := ThrottleCurve(v)
		require.GreaterOrEqual(t, cur, prev, "curve must not decrease at %v", v)
		prev = cur
	}
}

func TestThrottleValue(t *testing.T) {
	cfg := config.DefaultControlConfig()

	t.Run("full pedal with curve", func(t *testing.T) {
		assert.InDelta(t, 25.0, ThrottleValue(Axes{Throttle: 1, Brake: released}, cfg), 1e-9)
	})

	t.Run("full pedal linear", func(t *testing.T) {
		linear := cfg
		linear.ThrottleCurve = false
		assert.InDelta(t, 50.0, ThrottleValue(Axes{Throttle: 1, Brake: released}, linear), 1e-9)
	})

	t.Run("released pedal", func(t *testing.T) {
		assert.Equal(t, 0.0, ThrottleValue(Axes{Throttle: released, Brake: released}, cfg))
	})

	t.Run("never above range", func(t *testing.T) {
		linear := cfg
		linear.ThrottleCurve = false
		for v := -1.0; v <= 1.5; v += 0.01 {
			got := ThrottleValue(Axes{Throttle: v, Brake: released}, linear)
			require.GreaterOrEqual(t, got, 0.0)
			require.LessOrEqual(t, got, linear.ThrottleRange)
		}
	})
}

func TestThrottleValue_BrakeWins(t *testing.T) {
	cfg := config.DefaultControlConfig()

	for _, throttle := range []float64{-1, -0.5, 0, 0.5, 1} {
		for _, brake := range []float64{-0.98, 0, 1} {
			assert.Equal(t, 0.0, ThrottleValue(Axes{Throttle: throttle, Brake: brake}, cfg),
				"throttle=%v brake=%v", throttle, brake)
		}
	}
}

func TestCondition(t *testing.T) {
	cfg := config.DefaultControlConfig()

	cmd := Condition(Axes{Steer: 0.5, Throttle: 1, Brake: released}, cfg, protocol.Reverse)
	assert.Equal(t, float32(11.5), cmd.SteeringAngle)
	assert.InDelta(t, 25.0, float64(cmd.Throttle), 1e-4)
	assert.Equal(t, protocol.Reverse, cmd.Direction)

	braked := Condition(Axes{Steer: 0, Throttle: 1, Brake: 1}, cfg, protocol.Forward)
	assert.Equal(t, float32(0), braked.Throttle)
	assert.Equal(t, protocol.Forward, braked.Direction)
}

func TestBrakeLevel(t *testing.T) {
	cfg := config.DefaultControlConfig()

	assert.Equal(t, 0.0, BrakeLevel(Axes{Brake: released}, cfg))
	assert.InDelta(t, 50.0, BrakeLevel(Axes{Brake: 1}, cfg), 1e-9)
}
