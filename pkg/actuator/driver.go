// Package actuator is the boundary to the steering servo and the ESC.
//
// The PWM hardware itself lives outside this module; a Driver
// implementation turns angles and duty fractions into signals.
package actuator

import (
	"errors"
	"math"
	"time"

	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/protocol"
)

// ErrUnavailable is returned when the actuator bus cannot be opened.
var ErrUnavailable = errors.New("actuator driver unavailable")

// Driver drives the two vehicle outputs. Implementations clamp or reject
// out-of-range values themselves.
type Driver interface {
	// SetSteeringAngle sets the servo to degrees relative to straight ahead.
	SetSteeringAngle(degrees float64) error
	// SetDriveDuty sets the ESC duty cycle as a fraction of the PWM period.
	SetDriveDuty(fraction float64) error
	Close() error
}

// ESC converts throttle commands into duty fractions around the neutral point.
type ESC struct {
	cfg config.ESCConfig
}

func NewESC(cfg config.ESCConfig) ESC {
	return ESC{cfg: cfg}
}

// Neutral is the zero-throttle duty.
func (e ESC) Neutral() float64 {
	return e.cfg.NeutralDuty
}

// Duty returns neutral + throttle/100*span forward, neutral - throttle/100*span
// in reverse, clamped to the configured duty bounds.
func (e ESC) Duty(throttle float64, dir protocol.Direction) float64 {
	if throttle <= 0 || math.IsNaN(throttle) {
		return e.cfg.NeutralDuty
	}
	if throttle > 100 {
		throttle = 100
	}

	offset := throttle / 100 * e.cfg.DutySpan
	duty := e.cfg.NeutralDuty + offset
	if dir == protocol.Reverse {
		duty = e.cfg.NeutralDuty - offset
	}

	return math.Min(math.Max(duty, e.cfg.MinDuty), e.cfg.MaxDuty)
}

// ServoAngle converts a steering angle into the absolute servo position,
// clamped to center ± maxAngle.
func ServoAngle(steering float64, cfg config.SteeringConfig) float64 {
	s := math.Min(math.Max(steering, -cfg.MaxAngle), cfg.MaxAngle)
	return cfg.ServoCenter + s
}

// Sleeper waits for d. Tests pass a fake that records the waits.
type Sleeper func(d time.Duration)

// Arm holds the ESC at its arming duty so it registers a valid signal before
// any drive command, then returns it to neutral.
func Arm(d Driver, cfg config.ESCConfig, sleep Sleeper) error {
	if cfg.ArmDuration <= 0 {
		return d.SetDriveDuty(cfg.NeutralDuty)
	}
	if err := d.SetDriveDuty(cfg.ArmDuty); err != nil {
		return err
	}
	sleep(cfg.ArmDuration)
	return d.SetDriveDuty(cfg.NeutralDuty)
}
