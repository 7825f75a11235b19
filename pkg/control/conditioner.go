// Package control turns raw wheel and pedal readings into bounded commands.
//
// Axis convention: steering reads -1 (full left) to +1 (full right).
// Pedals read -1 when released and +1 when fully pressed.
package control

import (
	"math"

	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/protocol"
)

// PedalReleasedThreshold is the pedal reading above which a pedal counts as
// pressed. It sits just above the -1 rest position so sensor noise at rest
// never engages a pedal.
const PedalReleasedThreshold = -0.99

// Axes is one raw reading of the three analog inputs.
type Axes struct {
	Steer    float64 `json:"steer"`
	Throttle float64 `json:"throttle"`
	Brake    float64 `json:"brake"`
}

// ApplyDeadzone snaps readings closer than deadzone to zero.
func ApplyDeadzone(value, deadzone float64) float64 {
	if math.Abs(value) < deadzone {
		return 0
	}
	return value
}

// MapRange maps value linearly from [inMin, inMax] onto [outMin, outMax].
// Callers pass fixed bounds; inMin must differ from inMax.
func MapRange(value, inMin, inMax, outMin, outMax float64) float64 {
	return (value-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// ThrottleCurve squares the throttle fraction for finer control at low
// pedal travel. curve(0) = 0, curve(100) = 100.
func ThrottleCurve(value float64) float64 {
	f := value / 100
	return f * f * 100
}

// ClampAxis limits a raw reading to [-1, 1]. NaN reads as 0.
func ClampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, -1, 1)
}

// SteeringAngle maps a steering reading to degrees in [-SteerRange, SteerRange].
// The map from [-1, 1] is symmetric about zero, so it is written as a plain
// product to keep SteeringAngle(-x) == -SteeringAngle(x) exact.
func SteeringAngle(raw float64, cfg config.ControlConfig) float64 {
	s := ApplyDeadzone(ClampAxis(raw), cfg.Deadzone) * cfg.SteeringSensitivity
	return clamp(s*cfg.SteerRange, -cfg.SteerRange, cfg.SteerRange)
}

// BrakeEngaged reports whether the brake pedal is pressed.
func BrakeEngaged(rawBrake float64) bool {
	return ClampAxis(rawBrake) > PedalReleasedThreshold
}

// ThrottleValue maps the pedals to a throttle magnitude in
// [0, cfg.ThrottleRange]. The brake always wins.
func ThrottleValue(axes Axes, cfg config.ControlConfig) float64 {
	if BrakeEngaged(axes.Brake) {
		return 0
	}

	raw := ClampAxis(axes.Throttle)
	if raw <= PedalReleasedThreshold {
		return 0
	}

	t := ApplyDeadzone(raw, cfg.Deadzone)
	linear := clamp(MapRange(t, PedalReleasedThreshold, 1, 0, cfg.ThrottleRange), 0, cfg.ThrottleRange)
	if !cfg.ThrottleCurve {
		return linear
	}
	return ThrottleCurve(linear)
}

// BrakeLevel maps the brake pedal onto [0, cfg.BrakeRange]. Display only.
func BrakeLevel(axes Axes, cfg config.ControlConfig) float64 {
	if !BrakeEngaged(axes.Brake) {
		return 0
	}
	b := ApplyDeadzone(ClampAxis(axes.Brake), cfg.Deadzone)
	return clamp(MapRange(b, PedalReleasedThreshold, 1, 0, cfg.BrakeRange), 0, cfg.BrakeRange)
}

// Condition converts one reading into a command. The direction is carried
// in unchanged; it never comes from the pedals.
func Condition(axes Axes, cfg config.ControlConfig, dir protocol.Direction) protocol.Command {
	return protocol.Command{
		SteeringAngle: float32(SteeringAngle(axes.Steer, cfg)),
		Throttle:      float32(ThrottleValue(axes, cfg)),
		Direction:     dir,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
