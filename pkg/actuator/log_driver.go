package actuator

import (
	"math"

	"github.com/steer-rc/controller/pkg/config"
	customlog "github.com/steer-rc/controller/pkg/log"
)

// LogDriver is a dry-run Driver. It validates and logs what it would output
// and only logs when a value changes.
type LogDriver struct {
	logger   customlog.Logger
	steering config.SteeringConfig
	esc      config.ESCConfig

	lastAngle float64
	lastDuty  float64
}

func NewLogDriver(logger customlog.Logger, cfg config.VehicleConfig) *LogDriver {
	return &LogDriver{
		logger:    logger.WithField("driver", "dry-run"),
		steering:  cfg.Steering,
		esc:       cfg.ESC,
		lastAngle: math.NaN(),
		lastDuty:  math.NaN(),
	}
}

func (d *LogDriver) SetSteeringAngle(degrees float64) error {
	servo := ServoAngle(degrees, d.steering)
	if servo != d.lastAngle {
		d.logger.Debugf("servo angle %.1f (steering %.1f)", servo, degrees)
		d.lastAngle = servo
	}
	return nil
}

func (d *LogDriver) SetDriveDuty(fraction float64) error {
	duty := math.Min(math.Max(fraction, d.esc.MinDuty), d.esc.MaxDuty)
	if duty != d.lastDuty {
		d.logger.Debugf("esc duty %.2f%% (%d/65535)", duty*100, int(duty*65535))
		d.lastDuty = duty
	}
	return nil
}

func (d *LogDriver) Close() error {
	d.logger.Infof("dry-run driver closed")
	return nil
}
