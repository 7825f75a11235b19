package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure so callers can refuse to start.
var ErrInvalidConfig = errors.New("invalid configuration")

// ControlConfig holds the operator-side tuning. A loaded value is treated as
// an immutable snapshot; updates build a new value and publish it.
type ControlConfig struct {
	UDPHost string `yaml:"udp_host" json:"udp_host"`
	UDPPort int    `yaml:"udp_port" json:"udp_port"`
	// DSCP marks outgoing command datagrams; 0 leaves the socket default.
	DSCP int `yaml:"dscp" json:"dscp"`

	SteerRange          float64 `yaml:"steer_range" json:"steer_range"`
	SteeringSensitivity float64 `yaml:"steering_sensitivity" json:"steering_sensitivity"`
	Deadzone            float64 `yaml:"deadzone" json:"deadzone"`

	ThrottleRange float64 `yaml:"throttle_range" json:"throttle_range"`
	ThrottleStep  float64 `yaml:"throttle_step" json:"throttle_step"`
	ThrottleMin   float64 `yaml:"throttle_min" json:"throttle_min"`
	ThrottleMax   float64 `yaml:"throttle_max" json:"throttle_max"`
	ThrottleCurve bool    `yaml:"throttle_curve" json:"throttle_curve"`
	BrakeRange    float64 `yaml:"brake_range" json:"brake_range"`

	Buttons ButtonMapping `yaml:"buttons" json:"buttons"`

	SendInterval time.Duration `yaml:"send_interval" json:"send_interval"`
	InputTimeout time.Duration `yaml:"input_timeout" json:"input_timeout"`
}

// ButtonMapping assigns wheel button indices to actions.
type ButtonMapping struct {
	ThrottleUp      int `yaml:"throttle_up" json:"throttle_up"`
	ThrottleDown    int `yaml:"throttle_down" json:"throttle_down"`
	DirectionToggle int `yaml:"direction_toggle" json:"direction_toggle"`
}

// VehicleConfig holds the vehicle-side receiver and ESC settings.
type VehicleConfig struct {
	ListenAddress  string         `yaml:"listen_address" json:"listen_address"`
	ReceiveTimeout time.Duration  `yaml:"receive_timeout" json:"receive_timeout"`
	ESC            ESCConfig      `yaml:"esc" json:"esc"`
	Steering       SteeringConfig `yaml:"steering" json:"steering"`
}

// ESCConfig describes the duty-cycle model of the speed controller.
// Forward and reverse drive are offsets from NeutralDuty scaled by
// throttle/100 * DutySpan.
type ESCConfig struct {
	NeutralDuty float64 `yaml:"neutral_duty" json:"neutral_duty"`
	DutySpan    float64 `yaml:"duty_span" json:"duty_span"`
	MinDuty     float64 `yaml:"min_duty" json:"min_duty"`
	MaxDuty     float64 `yaml:"max_duty" json:"max_duty"`

	ArmDuty     float64       `yaml:"arm_duty" json:"arm_duty"`
	ArmDuration time.Duration `yaml:"arm_duration" json:"arm_duration"`

	ReversePulseThrottle float64       `yaml:"reverse_pulse_throttle" json:"reverse_pulse_throttle"`
	ReversePulseDuration time.Duration `yaml:"reverse_pulse_duration" json:"reverse_pulse_duration"`
	NeutralHoldDuration  time.Duration `yaml:"neutral_hold_duration" json:"neutral_hold_duration"`
}

// SteeringConfig describes the steering servo.
type SteeringConfig struct {
	ServoCenter float64 `yaml:"servo_center" json:"servo_center"`
	MaxAngle    float64 `yaml:"max_angle" json:"max_angle"`
}

// DefaultControlConfig returns the operator defaults.
func DefaultControlConfig() ControlConfig {
	return ControlConfig{
		UDPHost:             "192.168.11.2",
		UDPPort:             5005,
		SteerRange:          23,
		SteeringSensitivity: 1.0,
		Deadzone:            0.02,
		ThrottleRange:       50,
		ThrottleStep:        5,
		ThrottleMin:         30,
		ThrottleMax:         100,
		ThrottleCurve:       true,
		BrakeRange:          50,
		Buttons: ButtonMapping{
			ThrottleUp:      4,
			ThrottleDown:    5,
			DirectionToggle: 19,
		},
		SendInterval: 20 * time.Millisecond,
		InputTimeout: 500 * time.Millisecond,
	}
}

// DefaultVehicleConfig returns the vehicle defaults.
func DefaultVehicleConfig() VehicleConfig {
	return VehicleConfig{
		ListenAddress:  "0.0.0.0:5005",
		ReceiveTimeout: 500 * time.Millisecond,
		ESC: ESCConfig{
			NeutralDuty:          0.075,
			DutySpan:             0.025,
			MinDuty:              0.05,
			MaxDuty:              0.10,
			ArmDuty:              0.095,
			ArmDuration:          2 * time.Second,
			ReversePulseThrottle: 10,
			ReversePulseDuration: 150 * time.Millisecond,
			NeutralHoldDuration:  150 * time.Millisecond,
		},
		Steering: SteeringConfig{
			ServoCenter: 90,
			MaxAngle:    45,
		},
	}
}

// ParseControlConfig overlays YAML onto the defaults and validates the result.
func ParseControlConfig(data []byte) (ControlConfig, error) {
	cfg := DefaultControlConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ControlConfig{}, fmt.Errorf("error parsing control config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ControlConfig{}, err
	}
	return cfg, nil
}

// LoadControlConfig loads the operator configuration from the specified file path.
func LoadControlConfig(path string) (ControlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ControlConfig{}, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseControlConfig(data)
}

// ParseVehicleConfig overlays YAML onto the defaults and validates the result.
func ParseVehicleConfig(data []byte) (VehicleConfig, error) {
	cfg := DefaultVehicleConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return VehicleConfig{}, fmt.Errorf("error parsing vehicle config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return VehicleConfig{}, err
	}
	return cfg, nil
}

// LoadVehicleConfig loads the vehicle configuration from the specified file path.
func LoadVehicleConfig(path string) (VehicleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VehicleConfig{}, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseVehicleConfig(data)
}

// Validate rejects any value that would leave the signal mapping undefined.
func (c ControlConfig) Validate() error {
	if err := finite(map[string]float64{
		"steer_range":          c.SteerRange,
		"steering_sensitivity": c.SteeringSensitivity,
		"deadzone":             c.Deadzone,
		"throttle_range":       c.ThrottleRange,
		"throttle_step":        c.ThrottleStep,
		"throttle_min":         c.ThrottleMin,
		"throttle_max":         c.ThrottleMax,
		"brake_range":          c.BrakeRange,
	}); err != nil {
		return err
	}

	switch {
	case c.UDPHost == "":
		return invalid("udp_host is required")
	case c.UDPPort <= 0 || c.UDPPort > 65535:
		return invalid("udp_port %d out of range", c.UDPPort)
	case c.DSCP < 0 || c.DSCP > 63:
		return invalid("dscp %d out of range 0..63", c.DSCP)
	case c.SteerRange <= 0:
		return invalid("steer_range must be positive")
	case c.SteeringSensitivity <= 0:
		return invalid("steering_sensitivity must be positive")
	case c.Deadzone < 0 || c.Deadzone >= 1:
		return invalid("deadzone %v must be in [0, 1)", c.Deadzone)
	case c.ThrottleMin < 0 || c.ThrottleMax > 100 || c.ThrottleMin > c.ThrottleMax:
		return invalid("throttle bounds [%v, %v] must lie within [0, 100]", c.ThrottleMin, c.ThrottleMax)
	case c.ThrottleRange < c.ThrottleMin || c.ThrottleRange > c.ThrottleMax:
		return invalid("throttle_range %v outside [%v, %v]", c.ThrottleRange, c.ThrottleMin, c.ThrottleMax)
	case c.ThrottleStep < 0:
		return invalid("throttle_step must not be negative")
	case c.BrakeRange < 0:
		return invalid("brake_range must not be negative")
	case c.SendInterval <= 0:
		return invalid("send_interval must be positive")
	case c.InputTimeout <= 0:
		return invalid("input_timeout must be positive")
	}
	return nil
}

// Validate rejects any value that would leave the actuator mapping undefined.
func (c VehicleConfig) Validate() error {
	e := c.ESC
	if err := finite(map[string]float64{
		"esc.neutral_duty":           e.NeutralDuty,
		"esc.duty_span":              e.DutySpan,
		"esc.min_duty":               e.MinDuty,
		"esc.max_duty":               e.MaxDuty,
		"esc.arm_duty":               e.ArmDuty,
		"esc.reverse_pulse_throttle": e.ReversePulseThrottle,
		"steering.servo_center":      c.Steering.ServoCenter,
		"steering.max_angle":         c.Steering.MaxAngle,
	}); err != nil {
		return err
	}

	switch {
	case c.ListenAddress == "":
		return invalid("listen_address is required")
	case c.ReceiveTimeout <= 0:
		return invalid("receive_timeout must be positive")
	case e.MinDuty <= 0 || e.MaxDuty >= 1 || e.MinDuty >= e.MaxDuty:
		return invalid("esc duty bounds [%v, %v] must satisfy 0 < min < max < 1", e.MinDuty, e.MaxDuty)
	case e.NeutralDuty <= e.MinDuty || e.NeutralDuty >= e.MaxDuty:
		return invalid("esc.neutral_duty %v must lie strictly inside [%v, %v]", e.NeutralDuty, e.MinDuty, e.MaxDuty)
	case e.DutySpan <= 0:
		return invalid("esc.duty_span must be positive")
	case e.ArmDuty < e.MinDuty || e.ArmDuty > e.MaxDuty:
		return invalid("esc.arm_duty %v outside [%v, %v]", e.ArmDuty, e.MinDuty, e.MaxDuty)
	case e.ArmDuration < 0:
		return invalid("esc.arm_duration must not be negative")
	case e.ReversePulseThrottle <= 0 || e.ReversePulseThrottle > 100:
		return invalid("esc.reverse_pulse_throttle %v must be in (0, 100]", e.ReversePulseThrottle)
	case e.ReversePulseDuration <= 0 || e.NeutralHoldDuration <= 0:
		return invalid("esc reverse pulse durations must be positive")
	case c.Steering.MaxAngle <= 0:
		return invalid("steering.max_angle must be positive")
	}
	return nil
}

// finite rejects NaN and infinities, which pass every range comparison.
func finite(fields map[string]float64) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := fields[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("%s must be a finite number, got %v", name, v)
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
