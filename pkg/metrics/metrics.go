// Package metrics holds the OpenTelemetry instruments of both control loops.
// Instruments come from the global meter provider unless a meter is passed;
// NewProvider installs the SDK provider that exports them.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/steer-rc/controller"

// Vehicle counts receiver and state machine activity.
type Vehicle struct {
	packets          metric.Int64Counter
	malformed        metric.Int64Counter
	failsafe         metric.Int64Counter
	reverseEngaged   metric.Int64Counter
	actuatorFailures metric.Int64Counter
}

// NewVehicle creates the vehicle instruments on meter, or the global meter when nil.
func NewVehicle(meter metric.Meter) (*Vehicle, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	v := &Vehicle{}
	var err error
	if v.packets, err = meter.Int64Counter("vehicle.packets.received",
		metric.WithDescription("Valid command datagrams received")); err != nil {
		return nil, fmt.Errorf("failed to create packets counter: %w", err)
	}
	if v.malformed, err = meter.Int64Counter("vehicle.packets.malformed",
		metric.WithDescription("Datagrams discarded because they did not decode")); err != nil {
		return nil, fmt.Errorf("failed to create malformed counter: %w", err)
	}
	if v.failsafe, err = meter.Int64Counter("vehicle.failsafe.activations",
		metric.WithDescription("Watchdog expiries that forced a safe stop")); err != nil {
		return nil, fmt.Errorf("failed to create failsafe counter: %w", err)
	}
	if v.reverseEngaged, err = meter.Int64Counter("vehicle.reverse.engagements",
		metric.WithDescription("Reverse engagement pulses performed")); err != nil {
		return nil, fmt.Errorf("failed to create reverse counter: %w", err)
	}
	if v.actuatorFailures, err = meter.Int64Counter("vehicle.actuator.failures",
		metric.WithDescription("Driver calls that returned an error")); err != nil {
		return nil, fmt.Errorf("failed to create actuator counter: %w", err)
	}
	return v, nil
}

func (v *Vehicle) PacketReceived(ctx context.Context) { v.packets.Add(ctx, 1) }

func (v *Vehicle) Malformed(ctx context.Context, n int64) {
	if n > 0 {
		v.malformed.Add(ctx, n)
	}
}

func (v *Vehicle) Failsafe(ctx context.Context) { v.failsafe.Add(ctx, 1) }

func (v *Vehicle) ReverseEngaged(ctx context.Context) { v.reverseEngaged.Add(ctx, 1) }

func (v *Vehicle) ActuatorFailure(ctx context.Context, output string) {
	v.actuatorFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("output", output)))
}

// Operator counts sender and input activity.
type Operator struct {
	sent        metric.Int64Counter
	sendErrors  metric.Int64Counter
	inputErrors metric.Int64Counter
	toggles     metric.Int64Counter
}

// NewOperator creates the operator instruments on meter, or the global meter when nil.
func NewOperator(meter metric.Meter) (*Operator, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	o := &Operator{}
	var err error
	if o.sent, err = meter.Int64Counter("operator.packets.sent",
		metric.WithDescription("Command datagrams sent")); err != nil {
		return nil, fmt.Errorf("failed to create sent counter: %w", err)
	}
	if o.sendErrors, err = meter.Int64Counter("operator.send.errors",
		metric.WithDescription("Datagram writes that failed")); err != nil {
		return nil, fmt.Errorf("failed to create send error counter: %w", err)
	}
	if o.inputErrors, err = meter.Int64Counter("operator.input.errors",
		metric.WithDescription("Input device reads that failed")); err != nil {
		return nil, fmt.Errorf("failed to create input error counter: %w", err)
	}
	if o.toggles, err = meter.Int64Counter("operator.direction.toggles",
		metric.WithDescription("Direction toggles")); err != nil {
		return nil, fmt.Errorf("failed to create toggle counter: %w", err)
	}
	return o, nil
}

func (o *Operator) Sent(ctx context.Context)       { o.sent.Add(ctx, 1) }
func (o *Operator) SendError(ctx context.Context)  { o.sendErrors.Add(ctx, 1) }
func (o *Operator) InputError(ctx context.Context) { o.inputErrors.Add(ctx, 1) }
func (o *Operator) Toggled(ctx context.Context)    { o.toggles.Add(ctx, 1) }
